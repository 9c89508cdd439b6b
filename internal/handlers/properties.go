package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/media"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
	"listing-portal/internal/snapshot"
	"listing-portal/internal/submission"
)

// BaseHandler serves the internal base record endpoints called by the
// subtype handlers
type BaseHandler struct {
	store          *database.GormDB
	registry       *schema.Registry
	pipeline       *media.Pipeline
	snapshots      *snapshot.Service
	index          Indexer
	maxAttachments int
	log            *logrus.Logger
}

// BaseOptions configures NewBaseHandler
type BaseOptions struct {
	Store     *database.GormDB
	Registry  *schema.Registry
	Pipeline  *media.Pipeline
	Snapshots *snapshot.Service
	// Index may be nil
	Index          Indexer
	MaxAttachments int
	Logger         *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(opts BaseOptions) *BaseHandler {
	h := &BaseHandler{
		store:          opts.Store,
		registry:       opts.Registry,
		pipeline:       opts.Pipeline,
		snapshots:      opts.Snapshots,
		index:          opts.Index,
		maxAttachments: opts.MaxAttachments,
		log:            opts.Logger,
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	return h
}

// Create validates the base fields, ingests the images and stores a pending
// base record. Activation and the eager payment follow the caller's role.
func (h *BaseHandler) Create(c *gin.Context) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	logger := h.log.WithFields(logrus.Fields{"operation": "CreateBase", "user_id": caller.UserID})

	payload, ok := readPayload(c, h.maxAttachments)
	if !ok {
		return
	}
	rec, errs := h.registry.ValidateBase(payload.Fields)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	files := payload.Images()
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, fieldError(submission.ImagesField, "Atleast one image required"))
		return
	}
	if !h.checkAttachments(c, files) {
		return
	}

	typeID := caller.TypeID
	if typeID == "" && rec.TypeID != nil {
		typeID = *rec.TypeID
	}
	if _, err := models.ParseSubtypeID(typeID); err != nil {
		c.JSON(http.StatusBadRequest, fieldError("typeId", "Invalid property type"))
		return
	}

	paths, ok := h.ingest(c, logger, files)
	if !ok {
		return
	}

	p := &models.Property{
		TypeID:          typeID,
		UserID:          caller.UserID,
		Images:          paths,
		IsActive:        caller.Elevated(),
		ExtensionStatus: models.ExtensionStatusPending,
	}
	rec.Apply(p)
	if caller.Elevated() {
		p.Payment = &models.Payment{Amount: 0, Complete: true}
	}

	if err := h.store.CreateProperty(c.Request.Context(), p); err != nil {
		logger.WithError(err).Error("Failed to store base record")
		h.pipeline.Remove(context.Background(), paths)
		detail(c, http.StatusInternalServerError, "Failed to create property")
		return
	}

	h.reindex(logger, p)
	logger.WithFields(logrus.Fields{"property_id": p.ID, "images": len(paths)}).Info("Base record created")
	c.JSON(http.StatusOK, p)
}

// Update rewrites the base fields of an existing record. Images are
// optional; when present they replace the stored list.
func (h *BaseHandler) Update(c *gin.Context) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := c.Param("id")
	logger := h.log.WithFields(logrus.Fields{"operation": "UpdateBase", "user_id": caller.UserID, "property_id": id})
	ctx := c.Request.Context()

	current, err := h.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			detail(c, http.StatusNotFound, "Property not found")
			return
		}
		logger.WithError(err).Error("Failed to load base record")
		detail(c, http.StatusInternalServerError, "Failed to update property")
		return
	}
	if current.UserID != caller.UserID && !caller.Elevated() {
		detail(c, http.StatusNotFound, "Property not found")
		return
	}
	if caller.TypeID != "" && caller.TypeID != current.TypeID {
		c.JSON(http.StatusBadRequest, fieldError("typeId", "Property type cannot be changed"))
		return
	}

	payload, ok := readPayload(c, h.maxAttachments)
	if !ok {
		return
	}
	rec, errs := h.registry.ValidateBase(payload.Fields)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	var added []string
	if files := payload.Images(); len(files) > 0 {
		if !h.checkAttachments(c, files) {
			return
		}
		if added, ok = h.ingest(c, logger, files); !ok {
			return
		}
	}

	before := *current
	rec.Apply(current)
	if added != nil {
		current.Images = added
	}
	if err := h.store.UpdateProperty(ctx, current); err != nil {
		logger.WithError(err).Error("Failed to update base record")
		h.pipeline.Remove(context.Background(), added)
		detail(c, http.StatusInternalServerError, "Failed to update property")
		return
	}
	if added != nil {
		h.pipeline.Remove(context.Background(), before.Images)
	}

	if h.snapshots != nil {
		if _, err := h.snapshots.RecordUpdate(ctx, &before, current, caller.UserID); err != nil {
			logger.WithError(err).Warn("Failed to record property changes")
		}
	}
	h.reindex(logger, current)
	logger.Info("Base record updated")
	c.JSON(http.StatusOK, current)
}

func (h *BaseHandler) checkAttachments(c *gin.Context, files []media.File) bool {
	if h.maxAttachments > 0 && len(files) > h.maxAttachments {
		c.JSON(http.StatusBadRequest, fieldError(submission.ImagesField, tooManyImages(h.maxAttachments)))
		return false
	}
	return true
}

// ingest stores files, answering 400 for unreadable images and 500 for
// storage failures
func (h *BaseHandler) ingest(c *gin.Context, logger *logrus.Entry, files []media.File) ([]string, bool) {
	paths, err := h.pipeline.Ingest(c.Request.Context(), media.CategoryProperties, files)
	if err == nil {
		return paths, true
	}
	var derr *media.DecodeError
	if errors.As(err, &derr) {
		msg := fmt.Sprintf("Invalid image %s", derr.Name)
		c.JSON(http.StatusBadRequest, fieldError(submission.ImagesField, msg))
		return nil, false
	}
	logger.WithError(err).Error("Failed to store images")
	detail(c, http.StatusInternalServerError, "Failed to store images")
	return nil, false
}

func (h *BaseHandler) reindex(logger *logrus.Entry, p *models.Property) {
	if h.index == nil {
		return
	}
	if err := h.index.IndexListing(p); err != nil {
		logger.WithError(err).Warn("Failed to index listing")
	}
}
