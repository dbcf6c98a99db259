package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/models"
)

// memStore is an in-memory Store for exercising the services without a
// database. It follows the same (nil, nil) not-found convention.
type memStore struct {
	users        map[uuid.UUID]*models.User
	rooms        map[uuid.UUID]*models.ChatRoom
	participants map[uuid.UUID]map[uuid.UUID]*models.Participant // roomID -> userID
	messages     map[uuid.UUID]*models.Message
	reads        map[uuid.UUID]map[uuid.UUID]time.Time // messageID -> userID
	activity     []models.ActivityLog
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uuid.UUID]*models.User),
		rooms:        make(map[uuid.UUID]*models.ChatRoom),
		participants: make(map[uuid.UUID]map[uuid.UUID]*models.Participant),
		messages:     make(map[uuid.UUID]*models.Message),
		reads:        make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (s *memStore) WithTx(fn func(Store) error) error {
	return fn(s)
}

func (s *memStore) addUser(name string) *models.User {
	u := &models.User{
		ID:       uuid.New(),
		Name:     name,
		Email:    name + "@example.com",
		Role:     models.RoleUser,
		IsActive: true,
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addAdminUser(name string) *models.User {
	u := s.addUser(name)
	u.Role = models.RoleAdmin
	return u
}

func (s *memStore) GetUser(id uuid.UUID) (*models.User, error) {
	return s.users[id], nil
}

func (s *memStore) GetRoom(id uuid.UUID) (*models.ChatRoom, error) {
	room := s.rooms[id]
	if room == nil || room.DeletedAt.Valid {
		return nil, nil
	}
	return room, nil
}

func (s *memStore) GetRoomUnscoped(id uuid.UUID) (*models.ChatRoom, error) {
	return s.rooms[id], nil
}

func (s *memStore) CreateRoom(room *models.ChatRoom) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	s.rooms[room.ID] = room
	return nil
}

func (s *memStore) SaveRoom(room *models.ChatRoom) error {
	room.UpdatedAt = time.Now()
	s.rooms[room.ID] = room
	return nil
}

func (s *memStore) TouchRoom(id uuid.UUID) error {
	if room := s.rooms[id]; room != nil {
		room.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memStore) DeleteRoom(id uuid.UUID) error {
	if room := s.rooms[id]; room != nil {
		room.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

func (s *memStore) RestoreRoom(id uuid.UUID) error {
	if room := s.rooms[id]; room != nil {
		room.DeletedAt = gorm.DeletedAt{}
	}
	return nil
}

func (s *memStore) ForceDeleteRoom(id uuid.UUID) error {
	delete(s.rooms, id)
	delete(s.participants, id)
	for msgID, msg := range s.messages {
		if msg.ChatRoomID == id {
			delete(s.messages, msgID)
		}
	}
	return nil
}

func (s *memStore) FindPrivateRoomBetween(userA, userB uuid.UUID) (*models.ChatRoom, error) {
	for roomID, room := range s.rooms {
		if room.Type != models.RoomTypePrivate || room.DeletedAt.Valid {
			continue
		}
		// Membership rows match regardless of is_active, mirroring the SQL join.
		members := s.participants[roomID]
		if members[userA] != nil && members[userB] != nil {
			return room, nil
		}
	}
	return nil, nil
}

func (s *memStore) RoomsForUser(userID uuid.UUID, filter RoomFilter) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	for roomID, room := range s.rooms {
		if room.DeletedAt.Valid {
			continue
		}
		if filter.Type != "" && room.Type != filter.Type {
			continue
		}
		p := s.participants[roomID][userID]
		if p == nil || !p.IsActive {
			continue
		}
		rooms = append(rooms, *room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
	return rooms, nil
}

func (s *memStore) RoomsUnscoped(onlyDeleted bool) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	for _, room := range s.rooms {
		if onlyDeleted && !room.DeletedAt.Valid {
			continue
		}
		rooms = append(rooms, *room)
	}
	return rooms, nil
}

func (s *memStore) GetParticipant(roomID, userID uuid.UUID) (*models.Participant, error) {
	return s.participants[roomID][userID], nil
}

func (s *memStore) CreateParticipant(p *models.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if s.participants[p.ChatRoomID] == nil {
		s.participants[p.ChatRoomID] = make(map[uuid.UUID]*models.Participant)
	}
	s.participants[p.ChatRoomID][p.UserID] = p
	return nil
}

func (s *memStore) SaveParticipant(p *models.Participant) error {
	return s.CreateParticipant(p)
}

func (s *memStore) ActiveParticipants(roomID uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range s.participants[roomID] {
		if p.IsActive {
			cp := *p
			cp.User = s.users[p.UserID]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *memStore) CountActiveParticipants(roomID uuid.UUID) (int64, error) {
	var count int64
	for _, p := range s.participants[roomID] {
		if p.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *memStore) GetMessage(roomID, id uuid.UUID) (*models.Message, error) {
	msg := s.messages[id]
	if msg == nil || msg.ChatRoomID != roomID || msg.DeletedAt.Valid {
		return nil, nil
	}
	cp := *msg
	if cp.UserID != nil {
		cp.User = s.users[*cp.UserID]
	}
	if cp.ReplyToMessageID != nil {
		cp.ReplyToMessage = s.messages[*cp.ReplyToMessageID]
	}
	return &cp, nil
}

func (s *memStore) GetMessageUnscoped(roomID, id uuid.UUID) (*models.Message, error) {
	msg := s.messages[id]
	if msg == nil || msg.ChatRoomID != roomID {
		return nil, nil
	}
	cp := *msg
	if cp.UserID != nil {
		cp.User = s.users[*cp.UserID]
	}
	return &cp, nil
}

func (s *memStore) CreateMessage(m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) SaveMessage(m *models.Message) error {
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) DeleteMessage(id uuid.UUID) error {
	if msg := s.messages[id]; msg != nil {
		msg.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

func (s *memStore) RestoreMessage(id uuid.UUID) error {
	if msg := s.messages[id]; msg != nil {
		msg.DeletedAt = gorm.DeletedAt{}
	}
	return nil
}

func (s *memStore) ForceDeleteMessage(id uuid.UUID) error {
	delete(s.messages, id)
	return nil
}

func (s *memStore) RoomMessages(roomID uuid.UUID, limit int, before *time.Time, includeDeleted bool) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range s.messages {
		if msg.ChatRoomID != roomID {
			continue
		}
		if !includeDeleted && msg.DeletedAt.Valid {
			continue
		}
		if before != nil && !msg.CreatedAt.Before(*before) {
			continue
		}
		cp := *msg
		if cp.UserID != nil {
			cp.User = s.users[*cp.UserID]
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) LatestMessage(roomID uuid.UUID) (*models.Message, error) {
	var latest *models.Message
	for _, msg := range s.messages {
		if msg.ChatRoomID != roomID {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	if cp.UserID != nil {
		cp.User = s.users[*cp.UserID]
	}
	return &cp, nil
}

func (s *memStore) MarkRead(messageID, userID uuid.UUID) error {
	if s.reads[messageID] == nil {
		s.reads[messageID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := s.reads[messageID][userID]; !ok {
		s.reads[messageID][userID] = time.Now()
	}
	return nil
}

func (s *memStore) ReadCount(messageID uuid.UUID) (int64, error) {
	return int64(len(s.reads[messageID])), nil
}

func (s *memStore) ReadBy(messageID uuid.UUID) ([]models.MessageRead, error) {
	var out []models.MessageRead
	for userID, readAt := range s.reads[messageID] {
		out = append(out, models.MessageRead{
			MessageID: messageID,
			UserID:    userID,
			ReadAt:    readAt,
			User:      s.users[userID],
		})
	}
	return out, nil
}

func (s *memStore) AppendActivity(entry *models.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	s.activity = append(s.activity, *entry)
	return nil
}

func (s *memStore) RecentActivity(limit int) ([]models.ActivityLog, error) {
	out := append([]models.ActivityLog(nil), s.activity...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// capturePublisher records every published event.
type capturePublisher struct {
	events []*broadcast.Event
}

func (p *capturePublisher) Publish(_ context.Context, event *broadcast.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) named(name string) []*broadcast.Event {
	var out []*broadcast.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
