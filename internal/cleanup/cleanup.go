package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"listing-portal/internal/database"
	"listing-portal/internal/models"
)

// Deindexer removes listings from the search index
type Deindexer interface {
	DeleteListing(id string) error
}

// Service reconciles base records whose extension never landed
type Service struct {
	store   *database.GormDB
	search  Deindexer
	log     *logrus.Logger
	nowFunc func() time.Time
}

// NewService creates a new reconciliation service. search may be nil.
func NewService(store *database.GormDB, search Deindexer, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, search: search, log: log, nowFunc: time.Now}
}

// Config holds configuration for a reconciliation run
type Config struct {
	Grace    time.Duration // how long a base record may stay pending
	MaxBatch int           // maximum records examined in one run
	DryRun   bool          // only log the decisions
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Grace:    30 * time.Minute,
		MaxBatch: 500,
	}
}

// Result holds the result of a reconciliation run
type Result struct {
	TargetCount    int       `json:"target_count"`
	CompletedCount int       `json:"completed_count"`
	OrphanedCount  int       `json:"orphaned_count"`
	ErrorCount     int       `json:"error_count"`
	DryRun         bool      `json:"dry_run"`
	ExecutedAt     time.Time `json:"executed_at"`
	Orphaned       []string  `json:"orphaned"`
	Errors         []string  `json:"errors,omitempty"`
}

// FindStale lists pending base records older than the grace period
func (s *Service) FindStale(ctx context.Context, grace time.Duration, limit int) ([]models.Property, error) {
	cutoff := s.nowFunc().Add(-grace)
	properties, err := s.store.PendingProperties(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending properties: %w", err)
	}
	return properties, nil
}

// Run examines stale pending records. A record whose extension exists is
// marked complete; otherwise it is marked orphaned and deactivated. Each
// decision is logged to reconcile_logs.
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	result := &Result{
		DryRun:     cfg.DryRun,
		ExecutedAt: s.nowFunc(),
		Orphaned:   []string{},
	}
	logger := s.log.WithFields(logrus.Fields{"operation": "Reconcile", "dry_run": cfg.DryRun})

	stale, err := s.FindStale(ctx, cfg.Grace, cfg.MaxBatch)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(stale)
	if result.TargetCount == 0 {
		logger.Debug("No pending properties past the grace period")
		return result, nil
	}

	for _, prop := range stale {
		outcome, err := s.reconcile(ctx, &prop, cfg.DryRun)
		if err != nil {
			msg := fmt.Sprintf("property %s: %v", prop.ID, err)
			logger.WithError(err).WithField("property_id", prop.ID).Error("Failed to reconcile property")
			result.Errors = append(result.Errors, msg)
			result.ErrorCount++
			continue
		}

		switch outcome {
		case models.ReconcileOutcomeCompleted:
			result.CompletedCount++
		case models.ReconcileOutcomeOrphaned:
			result.OrphanedCount++
			result.Orphaned = append(result.Orphaned, prop.ID)
		}
	}

	logger.WithFields(logrus.Fields{
		"target":    result.TargetCount,
		"completed": result.CompletedCount,
		"orphaned":  result.OrphanedCount,
		"errors":    result.ErrorCount,
	}).Info("Reconciliation completed")

	return result, nil
}

func (s *Service) reconcile(ctx context.Context, prop *models.Property, dryRun bool) (string, error) {
	subtype, err := prop.Subtype()
	if err != nil {
		return "", err
	}
	exists, err := s.store.ExtensionExists(ctx, subtype, prop.ID)
	if err != nil {
		return "", err
	}

	outcome := models.ReconcileOutcomeOrphaned
	status := models.ExtensionStatusOrphaned
	if exists {
		outcome = models.ReconcileOutcomeCompleted
		status = models.ExtensionStatusComplete
	}

	if dryRun {
		s.log.WithFields(logrus.Fields{
			"operation":   "Reconcile",
			"property_id": prop.ID,
			"outcome":     outcome,
		}).Info("[DRY-RUN] Would reconcile property")
		return outcome, nil
	}

	err = s.store.Transaction(ctx, func(tx *database.GormDB) error {
		if err := tx.CreateReconcileLog(ctx, &models.ReconcileLog{
			PropertyID:   prop.ID,
			Title:        prop.Title,
			TypeID:       prop.TypeID,
			Outcome:      outcome,
			PendingSince: prop.CreatedAt,
		}); err != nil {
			return err
		}
		if err := tx.SetExtensionStatus(ctx, prop.ID, status); err != nil {
			return err
		}
		if !exists {
			return tx.SetActive(ctx, prop.ID, false)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if !exists && s.search != nil {
		if err := s.search.DeleteListing(prop.ID); err != nil {
			s.log.WithError(err).WithField("property_id", prop.ID).Warn("Failed to remove orphaned listing from search")
		}
	}
	return outcome, nil
}

// GetStats returns listing and reconciliation statistics
func (s *Service) GetStats(ctx context.Context) (*database.Stats, error) {
	return s.store.Stats(ctx, s.nowFunc().AddDate(0, 0, -30))
}

// GetRecentLogs returns recent reconciliation decisions
func (s *Service) GetRecentLogs(ctx context.Context, limit int) ([]models.ReconcileLog, error) {
	return s.store.ListReconcileLogs(ctx, limit)
}
