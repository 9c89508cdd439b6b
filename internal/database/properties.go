package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"listing-portal/internal/models"
)

// CreateProperty inserts a base record together with its payment, if any
func (gdb *GormDB) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := gdb.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetProperty loads a base record with its payment
func (gdb *GormDB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := gdb.db.WithContext(ctx).Preload("Payment").Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, notFound(err, "property "+id)
	}
	return &p, nil
}

// PropertyExists reports whether a base record with id exists
func (gdb *GormDB) PropertyExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := gdb.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateProperty writes the editable base fields. Owner, subtype, activation
// and extension status are never changed here.
func (gdb *GormDB) UpdateProperty(ctx context.Context, p *models.Property) error {
	err := gdb.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", p.ID).
		Select("title", "status", "price", "features", "county", "sub_county", "land_mark", "listed", "images", "updated_at").
		Updates(p).Error
	if err != nil {
		return fmt.Errorf("failed to update property %s: %w", p.ID, err)
	}
	return nil
}

// SetExtensionStatus records the outcome of the second stage
func (gdb *GormDB) SetExtensionStatus(ctx context.Context, id string, status models.ExtensionStatus) error {
	return gdb.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", id).
		Update("extension_status", status).Error
}

// PendingProperties lists base records still waiting for an extension that
// were created before olderThan
func (gdb *GormDB) PendingProperties(ctx context.Context, olderThan time.Time, limit int) ([]models.Property, error) {
	var properties []models.Property
	q := gdb.db.WithContext(ctx).
		Where("extension_status = ? AND created_at < ?", models.ExtensionStatusPending, olderThan.UTC()).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&properties).Error
	return properties, err
}

func extensionModel(s models.Subtype) (any, error) {
	ext := models.NewExtension(s)
	if ext == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownSubtype, int(s))
	}
	return ext, nil
}

// CreateExtension inserts a subtype record. Its base must already exist.
func (gdb *GormDB) CreateExtension(ctx context.Context, ext models.Extension) error {
	if err := gdb.db.WithContext(ctx).Omit(clause.Associations).Create(ext).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", ext.Subtype().Slug(), err)
	}
	return nil
}

// UpdateExtension replaces every field of a subtype record
func (gdb *GormDB) UpdateExtension(ctx context.Context, ext models.Extension) error {
	err := gdb.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(ext).Error
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", ext.Subtype().Slug(), ext.BaseID(), err)
	}
	return nil
}

// GetExtension loads a subtype record with its base and payment
func (gdb *GormDB) GetExtension(ctx context.Context, s models.Subtype, id string) (models.Extension, error) {
	model, err := extensionModel(s)
	if err != nil {
		return nil, err
	}
	err = gdb.db.WithContext(ctx).
		Preload("Property").
		Preload("Property.Payment").
		Where("property_id = ?", id).
		First(model).Error
	if err != nil {
		return nil, notFound(err, s.Slug()+" "+id)
	}
	return model.(models.Extension), nil
}

// ExtensionExists reports whether the subtype record for id exists
func (gdb *GormDB) ExtensionExists(ctx context.Context, s models.Subtype, id string) (bool, error) {
	model, err := extensionModel(s)
	if err != nil {
		return false, err
	}
	var count int64
	err = gdb.db.WithContext(ctx).Model(model).Where("property_id = ?", id).Count(&count).Error
	return count > 0, err
}

// Transaction runs fn with a store bound to one transaction
func (gdb *GormDB) Transaction(ctx context.Context, fn func(tx *GormDB) error) error {
	return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormDB{db: tx})
	})
}
