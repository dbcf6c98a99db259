package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/thereayou/converse/internal/models"
)

func (d *Database) CreateMessage(m *models.Message) error {
	return d.db.Create(m).Error
}

func (d *Database) SaveMessage(m *models.Message) error {
	return d.db.Save(m).Error
}

func (d *Database) GetMessage(roomID, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := d.db.
		Where("chat_room_id = ?", roomID).
		Preload("User").
		Preload("ReplyToMessage.User").
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &m, nil
}

// GetMessageUnscoped includes soft-deleted messages, for admin moderation.
func (d *Database) GetMessageUnscoped(roomID, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := d.db.Unscoped().
		Where("chat_room_id = ?", roomID).
		Preload("User").
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &m, nil
}

func (d *Database) DeleteMessage(id uuid.UUID) error {
	return d.db.Delete(&models.Message{}, "id = ?", id).Error
}

func (d *Database) RestoreMessage(id uuid.UUID) error {
	return d.db.Unscoped().Model(&models.Message{}).Where("id = ?", id).Update("deleted_at", nil).Error
}

func (d *Database) ForceDeleteMessage(id uuid.UUID) error {
	return d.db.Unscoped().Delete(&models.Message{}, "id = ?", id).Error
}

// RoomMessages pages a room's timeline newest-first, then reverses so callers
// render oldest-first. includeDeleted keeps soft-deleted rows in the result
// (the service decides what of them a viewer may see).
func (d *Database) RoomMessages(roomID uuid.UUID, limit int, before *time.Time, includeDeleted bool) ([]models.Message, error) {
	var messages []models.Message

	query := d.db
	if includeDeleted {
		query = query.Unscoped()
	}
	query = query.Where("chat_room_id = ?", roomID)

	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Preload("User").
		Preload("ReplyToMessage.User").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// LatestMessage returns the room's most recent message including soft-deleted
// ones, so a deleted latest message surfaces as a placeholder rather than
// silently falling back to an older message.
func (d *Database) LatestMessage(roomID uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := d.db.Unscoped().
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		Preload("User").
		First(&m).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &m, nil
}

// MarkRead records the first read of a message by a user. Conflicting inserts
// are ignored, so marking twice is a no-op.
func (d *Database) MarkRead(messageID, userID uuid.UUID) error {
	read := models.MessageRead{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	return d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&read).Error
}

func (d *Database) ReadCount(messageID uuid.UUID) (int64, error) {
	var count int64
	err := d.db.Model(&models.MessageRead{}).Where("message_id = ?", messageID).Count(&count).Error
	return count, err
}

func (d *Database) ReadBy(messageID uuid.UUID) ([]models.MessageRead, error) {
	var reads []models.MessageRead
	err := d.db.Where("message_id = ?", messageID).Preload("User").Find(&reads).Error
	return reads, err
}
