package snapshot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"listing-portal/internal/models"
)

// Service records the change history of base records
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewService creates a new snapshot service
func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, log: log}
}

// DetectChanges compares a base record before and after an update
func DetectChanges(before, after *models.Property, changedBy string) []models.PropertyChange {
	now := time.Now()
	changes := []models.PropertyChange{}
	add := func(kind, oldVal, newVal string) {
		changes = append(changes, models.PropertyChange{
			PropertyID: after.ID,
			ChangeType: kind,
			OldValue:   oldVal,
			NewValue:   newVal,
			ChangedBy:  changedBy,
			DetectedAt: now,
		})
	}

	if before.Price != after.Price {
		add(models.ChangeTypePrice, formatPrice(before.Price), formatPrice(after.Price))
	}
	if before.Status != after.Status {
		add(models.ChangeTypeStatus, string(before.Status), string(after.Status))
	}
	if before.Title != after.Title {
		add(models.ChangeTypeTitle, before.Title, after.Title)
	}
	if before.Listed != after.Listed {
		add(models.ChangeTypeListed, strconv.FormatBool(before.Listed), strconv.FormatBool(after.Listed))
	}
	if !sameImages(before.Images, after.Images) {
		add(models.ChangeTypeImages, strings.Join(before.Images, ","), strings.Join(after.Images, ","))
	}

	return changes
}

// SaveChanges saves detected changes to the database
func (s *Service) SaveChanges(ctx context.Context, changes []models.PropertyChange) error {
	if len(changes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&changes).Error
}

// RecordUpdate detects and stores the changes between two versions of a
// base record
func (s *Service) RecordUpdate(ctx context.Context, before, after *models.Property, changedBy string) ([]models.PropertyChange, error) {
	changes := DetectChanges(before, after, changedBy)
	if err := s.SaveChanges(ctx, changes); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		s.log.WithFields(logrus.Fields{
			"operation":   "RecordUpdate",
			"property_id": after.ID,
			"changes":     len(changes),
		}).Info("Detected property changes")
	}
	return changes, nil
}

// GetPropertyHistory retrieves the change history of one property, newest first
func (s *Service) GetPropertyHistory(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}

	return changes, nil
}

// GetRecentChanges retrieves recent property changes
func (s *Service) GetRecentChanges(ctx context.Context, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}

	return changes, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sameImages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
