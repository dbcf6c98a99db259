package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an append-only audit record. Rows are never updated or
// deleted by normal application flow.
type ActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Action      string    `gorm:"not null;index" json:"action"`
	Description string    `json:"description,omitempty"`
	Metadata    JSONMap   `gorm:"type:jsonb" json:"metadata,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
