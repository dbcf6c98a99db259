package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoomTypePrivate = "private"
	RoomTypeGroup   = "group"
)

type ChatRoom struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `gorm:"not null;check:type IN ('private','group')" json:"type"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Settings    JSONMap        `gorm:"type:jsonb" json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Creator      *User         `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Participants []Participant `gorm:"foreignKey:ChatRoomID" json:"-"`
	Messages     []Message     `gorm:"foreignKey:ChatRoomID" json:"-"`
}

func (r *ChatRoom) IsCreator(userID uuid.UUID) bool {
	return r.CreatedBy == userID
}
