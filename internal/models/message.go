package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeAudio = "audio"
	MessageTypeFile  = "file"
)

// System message discriminators, narrated inside the room timeline.
const (
	SystemUserAdded          = "user_added"
	SystemUserRemoved        = "user_removed"
	SystemUserLeft           = "user_left"
	SystemGroupAvatarUpdated = "group_avatar_updated"
)

// Attachment is the stored-file metadata kept on a message. The raw bytes
// live in file storage; the message only carries this description.
type Attachment struct {
	OriginalName string `json:"original_name"`
	StoredPath   string `json:"-"` // relative to the upload root, never serialized
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	Category     string `json:"category"` // image, audio, document, other
}

type AttachmentInfo struct {
	Files      []Attachment `json:"files"`
	TotalFiles int          `json:"total_files"`
}

func (a AttachmentInfo) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AttachmentInfo) Scan(value interface{}) error {
	return scanJSON(value, a)
}

type Message struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChatRoomID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"chat_room_id"`
	UserID           *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"` // nil sender = system message
	Content          string          `gorm:"not null" json:"content"`
	Type             string          `gorm:"not null;default:'text';check:type IN ('text','image','audio','file')" json:"type"`
	ReplyToMessageID *uuid.UUID      `gorm:"type:uuid" json:"reply_to_message_id,omitempty"`
	IsEdited         bool            `gorm:"not null;default:false" json:"is_edited"`
	EditedAt         *time.Time      `json:"edited_at,omitempty"`
	AttachmentInfo   *AttachmentInfo `gorm:"type:jsonb" json:"attachment_info,omitempty"`
	IsSystem         bool            `gorm:"not null;default:false" json:"is_system"`
	SystemType       string          `json:"system_type,omitempty"`
	SystemData       JSONMap         `gorm:"type:jsonb" json:"system_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	User           *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ChatRoom       *ChatRoom     `gorm:"foreignKey:ChatRoomID" json:"-"`
	ReplyToMessage *Message      `gorm:"foreignKey:ReplyToMessageID" json:"reply_to_message,omitempty"`
	ReadBy         []MessageRead `gorm:"foreignKey:MessageID" json:"-"`
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt.Valid
}

// SentBy reports whether the message was authored by the given user.
// System messages have no author.
func (m *Message) SentBy(userID uuid.UUID) bool {
	return m.UserID != nil && *m.UserID == userID
}

// MessageRead records when a user first read a message. Inserting twice for
// the same (message, user) pair is a no-op.
type MessageRead struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey" json:"message_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
