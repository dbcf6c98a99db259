package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/thereayou/converse/internal/services"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// WithTx runs fn inside a single storage transaction. The store passed to fn
// is scoped to that transaction.
func (d *Database) WithTx(fn func(services.Store) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

// notFoundToNil converts gorm's not-found error into the (nil, nil)
// convention of services.Store.
func notFoundToNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
