package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return d.db.Save(user).Error
}

func (d *Database) CreateUser(user *models.User) error {
	return d.db.Create(user).Error
}

func (d *Database) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &user, nil
}

// SearchUsers matches name or email for the contact picker.
func (d *Database) SearchUsers(query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + query + "%"
	err := d.db.
		Where("is_active = ?", true).
		Where("name ILIKE ? OR email ILIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (d *Database) UpdateLastSeen(id uuid.UUID) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Update("last_seen_at", time.Now()).Error
}
