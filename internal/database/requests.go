package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"listing-portal/internal/models"
)

// CreatePropertyRequest stores an inquiry and loads its property. An
// unknown property yields ErrNotFound and nothing is stored.
func (gdb *GormDB) CreatePropertyRequest(ctx context.Context, r *models.PropertyRequest) error {
	db := gdb.db.WithContext(ctx)
	var p models.Property
	if err := db.Where("id = ?", r.PropertyID).First(&p).Error; err != nil {
		return notFound(err, "property "+r.PropertyID)
	}
	if err := db.Omit("Property").Create(r).Error; err != nil {
		return fmt.Errorf("failed to create property request: %w", err)
	}
	r.Property = &p
	return nil
}

// PendingNotifications returns inquiries whose notifications have not been
// sent yet, oldest first
func (gdb *GormDB) PendingNotifications(ctx context.Context, limit int) ([]models.PropertyRequest, error) {
	var requests []models.PropertyRequest
	err := gdb.db.WithContext(ctx).
		Preload("Property").
		Where("notified = ? AND attempts < ?", false, models.MaxNotifyAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}

// MarkNotified flags an inquiry as sent
func (gdb *GormDB) MarkNotified(ctx context.Context, id string) error {
	now := time.Now()
	return gdb.db.WithContext(ctx).Model(&models.PropertyRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notified":    true,
			"notified_at": &now,
			"last_error":  "",
		}).Error
}

// MarkNotifyFailed records a failed delivery attempt
func (gdb *GormDB) MarkNotifyFailed(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return gdb.db.WithContext(ctx).Model(&models.PropertyRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": msg,
		}).Error
}
