package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ParticipantRoleMember    = "member"
	ParticipantRoleModerator = "moderator"
	ParticipantRoleAdmin     = "admin"
)

// ValidParticipantRole reports whether role is one of member, moderator, admin.
func ValidParticipantRole(role string) bool {
	switch role {
	case ParticipantRoleMember, ParticipantRoleModerator, ParticipantRoleAdmin:
		return true
	}
	return false
}

// Participant is a user's membership record in a room. Leaving a room
// deactivates the row instead of deleting it, so a (room, user) pair always
// maps to at most one row across its whole join/leave history.
type Participant struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChatRoomID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"chat_room_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"user_id"`
	Role       string     `gorm:"not null;default:'member';check:role IN ('member','moderator','admin')" json:"role"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	JoinedAt   time.Time  `json:"joined_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ChatRoom *ChatRoom `gorm:"foreignKey:ChatRoomID" json:"-"`
}
