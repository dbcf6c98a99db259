package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
)

// RoomFilter narrows a user's conversation list.
type RoomFilter struct {
	Type   string // "" = any
	Search string // substring match on name
}

// Store is the persistence contract the services depend on. Lookups return
// (nil, nil) when the record does not exist; services translate that into
// the appropriate not-found error.
//
// WithTx runs fn against a transactional view of the store. Event publishing
// never happens inside fn; callers publish only after WithTx returns nil.
type Store interface {
	WithTx(fn func(Store) error) error

	// Users
	GetUser(id uuid.UUID) (*models.User, error)

	// Rooms
	GetRoom(id uuid.UUID) (*models.ChatRoom, error)
	GetRoomUnscoped(id uuid.UUID) (*models.ChatRoom, error)
	CreateRoom(room *models.ChatRoom) error
	SaveRoom(room *models.ChatRoom) error
	TouchRoom(id uuid.UUID) error
	DeleteRoom(id uuid.UUID) error
	RestoreRoom(id uuid.UUID) error
	ForceDeleteRoom(id uuid.UUID) error
	FindPrivateRoomBetween(userA, userB uuid.UUID) (*models.ChatRoom, error)
	RoomsForUser(userID uuid.UUID, filter RoomFilter) ([]models.ChatRoom, error)
	RoomsUnscoped(onlyDeleted bool) ([]models.ChatRoom, error)

	// Participants
	GetParticipant(roomID, userID uuid.UUID) (*models.Participant, error)
	CreateParticipant(p *models.Participant) error
	SaveParticipant(p *models.Participant) error
	ActiveParticipants(roomID uuid.UUID) ([]models.Participant, error)
	CountActiveParticipants(roomID uuid.UUID) (int64, error)

	// Messages
	GetMessage(roomID, id uuid.UUID) (*models.Message, error)
	GetMessageUnscoped(roomID, id uuid.UUID) (*models.Message, error)
	CreateMessage(m *models.Message) error
	SaveMessage(m *models.Message) error
	DeleteMessage(id uuid.UUID) error
	RestoreMessage(id uuid.UUID) error
	ForceDeleteMessage(id uuid.UUID) error
	RoomMessages(roomID uuid.UUID, limit int, before *time.Time, includeDeleted bool) ([]models.Message, error)
	LatestMessage(roomID uuid.UUID) (*models.Message, error)

	// Read receipts
	MarkRead(messageID, userID uuid.UUID) error
	ReadCount(messageID uuid.UUID) (int64, error)
	ReadBy(messageID uuid.UUID) ([]models.MessageRead, error)

	// Activity log (append-only)
	AppendActivity(entry *models.ActivityLog) error
	RecentActivity(limit int) ([]models.ActivityLog, error)
}
