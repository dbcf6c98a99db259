package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User's credential and access-control fields never serialize; API responses
// carry only the public profile.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"not null;default:'user';check:role IN ('user','admin')" json:"role"`
	AvatarURL    string         `json:"avatar_url,omitempty"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	AllowedIPs   StringList     `gorm:"type:jsonb" json:"-"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsAllowedFromIP reports whether the user may connect from the given
// address. An empty allow-list means no restriction.
func (u *User) IsAllowedFromIP(ip string) bool {
	if len(u.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range u.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}
