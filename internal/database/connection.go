package database

import (
	"errors"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thereayou/converse/internal/models"
)

func Connect() (*Database, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ChatRoom{},
		&models.Participant{},
		&models.Message{},
		&models.MessageRead{},
		&models.ActivityLog{},
	)
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}
