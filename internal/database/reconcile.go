package database

import (
	"context"
	"fmt"
	"time"

	"listing-portal/internal/models"
)

// Stats summarises listings for the admin dashboard
type Stats struct {
	TotalProperties  int64            `json:"total_properties"`
	ActiveListings   int64            `json:"active_listings"`
	ByExtension      map[string]int64 `json:"by_extension_status"`
	ByType           map[string]int64 `json:"by_type"`
	ReconciledTotal  int64            `json:"reconciled_total"`
	ReconciledSince  int64            `json:"reconciled_last_30_days"`
	PendingInquiries int64            `json:"pending_inquiries"`
}

// SetActive switches a base record's activation flag
func (gdb *GormDB) SetActive(ctx context.Context, id string, active bool) error {
	return gdb.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// CreateReconcileLog stores one reconciliation decision
func (gdb *GormDB) CreateReconcileLog(ctx context.Context, entry *models.ReconcileLog) error {
	if err := gdb.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create reconcile log for %s: %w", entry.PropertyID, err)
	}
	return nil
}

// ListReconcileLogs returns the newest reconciliation decisions first
func (gdb *GormDB) ListReconcileLogs(ctx context.Context, limit int) ([]models.ReconcileLog, error) {
	var logs []models.ReconcileLog
	q := gdb.db.WithContext(ctx).Order("reconciled_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

// Stats counts listings by extension status and type, plus reconciliation
// decisions taken since the given time
func (gdb *GormDB) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	db := gdb.db.WithContext(ctx)
	stats := &Stats{
		ByExtension: map[string]int64{},
		ByType:      map[string]int64{},
	}

	if err := db.Model(&models.Property{}).Count(&stats.TotalProperties).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Property{}).Where("is_active = ?", true).Count(&stats.ActiveListings).Error; err != nil {
		return nil, err
	}

	var statusCounts []struct {
		ExtensionStatus string
		Count           int64
	}
	if err := db.Model(&models.Property{}).
		Select("extension_status, count(*) as count").
		Group("extension_status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}
	for _, sc := range statusCounts {
		stats.ByExtension[sc.ExtensionStatus] = sc.Count
	}

	var typeCounts []struct {
		TypeID string
		Count  int64
	}
	if err := db.Model(&models.Property{}).
		Select("type_id, count(*) as count").
		Group("type_id").
		Scan(&typeCounts).Error; err != nil {
		return nil, err
	}
	for _, tc := range typeCounts {
		key := tc.TypeID
		if s, err := models.ParseSubtypeID(tc.TypeID); err == nil {
			key = s.Slug()
		}
		stats.ByType[key] = tc.Count
	}

	if err := db.Model(&models.ReconcileLog{}).Count(&stats.ReconciledTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ReconcileLog{}).
		Where("reconciled_at >= ?", since.UTC()).
		Count(&stats.ReconciledSince).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PropertyRequest{}).
		Where("notified = ?", false).
		Count(&stats.PendingInquiries).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
