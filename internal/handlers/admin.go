package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/scheduler"
	"listing-portal/internal/snapshot"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	scheduler       *scheduler.Scheduler
	cleanupService  *cleanup.Service
	snapshotService *snapshot.Service
	log             *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sched *scheduler.Scheduler, reconcile *cleanup.Service, snapshots *snapshot.Service, log *logrus.Logger) *AdminHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdminHandler{
		scheduler:       sched,
		cleanupService:  reconcile,
		snapshotService: snapshots,
		log:             log,
	}
}

// GetStats returns listing and reconciliation statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.cleanupService.GetStats(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Admin: failed to get stats")
		detail(c, http.StatusInternalServerError, "Failed to load statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RunReconcile executes one reconciliation sweep and returns its result
func (h *AdminHandler) RunReconcile(c *gin.Context) {
	if h.scheduler == nil {
		detail(c, http.StatusServiceUnavailable, "Scheduler not available")
		return
	}

	var req struct {
		GraceMinutes int   `json:"grace_minutes"` // pending age before a record is examined
		MaxBatch     int   `json:"max_batch"`     // safety limit per run
		DryRun       *bool `json:"dry_run"`       // only log the decisions
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		detail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	opts := h.scheduler.Options()
	if req.GraceMinutes > 0 {
		opts.Grace = time.Duration(req.GraceMinutes) * time.Minute
	}
	if req.MaxBatch > 0 {
		opts.MaxBatch = req.MaxBatch
	}
	if req.DryRun != nil {
		opts.DryRun = *req.DryRun
	}
	if q := c.Query("dry_run"); q != "" {
		dry, err := strconv.ParseBool(q)
		if err != nil {
			detail(c, http.StatusBadRequest, "Invalid dry_run value")
			return
		}
		opts.DryRun = dry
	}

	h.log.WithFields(logrus.Fields{
		"grace":     opts.Grace.String(),
		"max_batch": opts.MaxBatch,
		"dry_run":   opts.DryRun,
	}).Info("Admin: reconciliation requested")

	result, err := h.scheduler.RunWith(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			detail(c, http.StatusConflict, "Reconciliation already in progress")
			return
		}
		h.log.WithError(err).Error("Admin: reconciliation failed")
		detail(c, http.StatusInternalServerError, "Reconciliation failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetReconcileLogs returns recent reconciliation decisions
func (h *AdminHandler) GetReconcileLogs(c *gin.Context) {
	limit := queryLimit(c, 100, 1000)

	logs, err := h.cleanupService.GetRecentLogs(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Admin: failed to load reconcile logs")
		detail(c, http.StatusInternalServerError, "Failed to load reconcile logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetPropertyHistory returns the change history of one base record
func (h *AdminHandler) GetPropertyHistory(c *gin.Context) {
	propertyID := c.Param("id")
	limit := queryLimit(c, 30, 500)

	changes, err := h.snapshotService.GetPropertyHistory(c.Request.Context(), propertyID, limit)
	if err != nil {
		h.log.WithError(err).WithField("property_id", propertyID).Error("Admin: failed to load history")
		detail(c, http.StatusInternalServerError, "Failed to load property history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"changes":     changes,
		"count":       len(changes),
	})
}

// GetRecentChanges returns recent base record changes
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	limit := queryLimit(c, 100, 1000)

	changes, err := h.snapshotService.GetRecentChanges(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Admin: failed to load recent changes")
		detail(c, http.StatusInternalServerError, "Failed to load recent changes")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}
