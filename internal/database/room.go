package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/internal/services"
)

func (d *Database) CreateRoom(room *models.ChatRoom) error {
	return d.db.Create(room).Error
}

func (d *Database) GetRoom(id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := d.db.Preload("Creator").First(&room, "id = ?", id).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &room, nil
}

// GetRoomUnscoped fetches a room even when soft-deleted, for admin recovery.
func (d *Database) GetRoomUnscoped(id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := d.db.Unscoped().Preload("Creator").First(&room, "id = ?", id).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &room, nil
}

func (d *Database) SaveRoom(room *models.ChatRoom) error {
	return d.db.Save(room).Error
}

// TouchRoom bumps updated_at so the conversation list reorders.
func (d *Database) TouchRoom(id uuid.UUID) error {
	return d.db.Model(&models.ChatRoom{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}

func (d *Database) DeleteRoom(id uuid.UUID) error {
	return d.db.Delete(&models.ChatRoom{}, "id = ?", id).Error
}

func (d *Database) RestoreRoom(id uuid.UUID) error {
	return d.db.Unscoped().Model(&models.ChatRoom{}).Where("id = ?", id).Update("deleted_at", nil).Error
}

func (d *Database) ForceDeleteRoom(id uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&models.Message{}, "chat_room_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Participant{}, "chat_room_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.ChatRoom{}, "id = ?", id).Error
	})
}

// FindPrivateRoomBetween locates an existing private room shared by two
// users, regardless of whether either participant row is currently active.
func (d *Database) FindPrivateRoomBetween(userA, userB uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := d.db.
		Joins("JOIN participants p1 ON p1.chat_room_id = chat_rooms.id AND p1.user_id = ?", userA).
		Joins("JOIN participants p2 ON p2.chat_room_id = chat_rooms.id AND p2.user_id = ?", userB).
		Where("chat_rooms.type = ?", models.RoomTypePrivate).
		Preload("Creator").
		First(&room).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &room, nil
}

func (d *Database) RoomsForUser(userID uuid.UUID, filter services.RoomFilter) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom

	query := d.db.
		Joins("JOIN participants ON participants.chat_room_id = chat_rooms.id").
		Where("participants.user_id = ? AND participants.is_active = ?", userID, true).
		Where("chat_rooms.is_active = ?", true)

	if filter.Type != "" {
		query = query.Where("chat_rooms.type = ?", filter.Type)
	}
	if filter.Search != "" {
		query = query.Where("chat_rooms.name ILIKE ?", "%"+filter.Search+"%")
	}

	err := query.
		Order("chat_rooms.updated_at DESC").
		Preload("Creator").
		Find(&rooms).Error
	return rooms, err
}

// RoomsUnscoped lists rooms including soft-deleted ones, for admin views.
func (d *Database) RoomsUnscoped(onlyDeleted bool) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	query := d.db.Unscoped().Preload("Creator")
	if onlyDeleted {
		query = query.Where("deleted_at IS NOT NULL")
	}
	err := query.Order("updated_at DESC").Find(&rooms).Error
	return rooms, err
}
