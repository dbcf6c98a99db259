package database

import "github.com/thereayou/converse/internal/models"

func (d *Database) AppendActivity(entry *models.ActivityLog) error {
	return d.db.Create(entry).Error
}

func (d *Database) RecentActivity(limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := d.db.Order("created_at DESC").Limit(limit).Preload("User").Find(&entries).Error
	return entries, err
}
