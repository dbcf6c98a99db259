package database

import (
	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
)

// GetParticipant returns the membership row for a (room, user) pair whether
// or not it is active. At most one row exists per pair; the unique index on
// (chat_room_id, user_id) enforces that under concurrent adds.
func (d *Database) GetParticipant(roomID, userID uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	err := d.db.Where("chat_room_id = ? AND user_id = ?", roomID, userID).First(&p).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &p, nil
}

func (d *Database) CreateParticipant(p *models.Participant) error {
	return d.db.Create(p).Error
}

func (d *Database) SaveParticipant(p *models.Participant) error {
	return d.db.Save(p).Error
}

func (d *Database) ActiveParticipants(roomID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := d.db.
		Where("chat_room_id = ? AND is_active = ?", roomID, true).
		Order("role DESC, joined_at ASC").
		Preload("User").
		Find(&participants).Error
	return participants, err
}

func (d *Database) CountActiveParticipants(roomID uuid.UUID) (int64, error) {
	var count int64
	err := d.db.Model(&models.Participant{}).
		Where("chat_room_id = ? AND is_active = ?", roomID, true).
		Count(&count).Error
	return count, err
}
