package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
)

// ErrSweepInProgress is returned by RunNow while another sweep runs
var ErrSweepInProgress = errors.New("reconciliation already in progress")

// Scheduler runs the extension reconciliation sweep on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	reconcile *cleanup.Service
	config    config.ReconcileConfig
	log       *logrus.Logger

	mu        sync.Mutex
	isRunning bool
	sweeping  bool
}

// NewScheduler creates a new scheduler
func NewScheduler(reconcile *cleanup.Service, cfg config.ReconcileConfig, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:      cron.New(),
		reconcile: reconcile,
		config:    cfg,
		log:       log,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.log.Info("Scheduler: reconciliation is disabled in configuration")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Cron); err != nil {
		return fmt.Errorf("invalid reconcile cron %q: %w", s.config.Cron, err)
	}

	_, err := s.cron.AddFunc(s.config.Cron, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.log.WithError(err).Error("Scheduler: reconciliation failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	s.log.WithField("cron", s.config.Cron).Info("Scheduler: started")

	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()
	if running {
		<-s.cron.Stop().Done()
		s.log.Info("Scheduler: stopped")
	}
}

// RunNow immediately executes one sweep. Overlapping sweeps are skipped.
func (s *Scheduler) RunNow(ctx context.Context) (*cleanup.Result, error) {
	return s.RunWith(ctx, s.Options())
}

// RunWith executes one sweep with explicit options
func (s *Scheduler) RunWith(ctx context.Context, opts cleanup.Config) (*cleanup.Result, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	return s.reconcile.Run(ctx, opts)
}

// Options returns the sweep options derived from configuration
func (s *Scheduler) Options() cleanup.Config {
	opts := cleanup.DefaultConfig()
	if s.config.GraceMinutes > 0 {
		opts.Grace = s.config.Grace()
	}
	if s.config.MaxBatch > 0 {
		opts.MaxBatch = s.config.MaxBatch
	}
	opts.DryRun = s.config.DryRun
	return opts
}
