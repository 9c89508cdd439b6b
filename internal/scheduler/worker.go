package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"listing-portal/internal/database"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"
)

// QueueWorker delivers the notifications of stored property requests
type QueueWorker struct {
	store        *database.GormDB
	notifier     notify.Notifier
	builder      notify.Builder
	log          *logrus.Logger
	pollInterval time.Duration
	batchSize    int

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// WorkerOptions configures a QueueWorker
type WorkerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Logger       *logrus.Logger
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(store *database.GormDB, notifier notify.Notifier, builder notify.Builder, opts WorkerOptions) *QueueWorker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &QueueWorker{
		store:        store,
		notifier:     notifier,
		builder:      builder,
		log:          opts.Logger,
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
	}
}

// Start starts the queue worker
func (w *QueueWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		w.log.Warn("QueueWorker: already running")
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true
	w.log.WithField("poll_interval", w.pollInterval).Info("QueueWorker: started")

	go w.run(ctx)
}

// Stop stops the queue worker and waits for the current batch
func (w *QueueWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.log.Info("QueueWorker: stopped")
}

// run is the main worker loop
func (w *QueueWorker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				w.log.WithError(err).Error("QueueWorker: batch failed")
			}
		}
	}
}

// ProcessBatch sends the notifications of up to one batch of pending
// requests and returns how many were delivered
func (w *QueueWorker) ProcessBatch(ctx context.Context) (int, error) {
	requests, err := w.store.PendingNotifications(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending requests: %w", err)
	}

	sent := 0
	for i := range requests {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if w.process(ctx, &requests[i]) {
			sent++
		}
	}
	return sent, nil
}

func (w *QueueWorker) process(ctx context.Context, r *models.PropertyRequest) bool {
	logger := w.log.WithFields(logrus.Fields{
		"operation":  "ProcessRequest",
		"request_id": r.ID,
		"attempt":    r.Attempts + 1,
	})

	for _, msg := range w.builder.ForRequest(r) {
		if err := w.notifier.Send(ctx, msg); err != nil {
			logger.WithError(err).Warn("QueueWorker: delivery failed")
			if err := w.store.MarkNotifyFailed(ctx, r.ID, err); err != nil {
				logger.WithError(err).Error("QueueWorker: failed to record attempt")
			}
			return false
		}
	}

	if err := w.store.MarkNotified(ctx, r.ID); err != nil {
		logger.WithError(err).Error("QueueWorker: failed to mark request notified")
		return false
	}
	logger.Debug("QueueWorker: request notified")
	return true
}
