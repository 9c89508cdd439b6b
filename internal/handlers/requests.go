package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/database"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

// RequestHandler accepts inquiries about listings. Notifications are sent
// later by the queue worker.
type RequestHandler struct {
	store    *database.GormDB
	registry *schema.Registry
	log      *logrus.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(store *database.GormDB, registry *schema.Registry, log *logrus.Logger) *RequestHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RequestHandler{store: store, registry: registry, log: log}
}

// Create validates and stores one inquiry
func (h *RequestHandler) Create(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	rec, errs := h.registry.ValidateInquiry(schema.FromJSON(body))
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	r := &models.PropertyRequest{
		PropertyID:  rec.PropertyID,
		Name:        rec.Name,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		Message:     rec.Message,
		IsAddressed: rec.IsAddressed,
	}
	if err := h.store.CreatePropertyRequest(c.Request.Context(), r); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusBadRequest, fieldError("propertyId", "Invalid property"))
			return
		}
		h.log.WithError(err).WithField("property_id", rec.PropertyID).Error("Failed to store property request")
		detail(c, http.StatusInternalServerError, "Failed to create property request")
		return
	}

	h.log.WithFields(logrus.Fields{
		"operation":   "CreatePropertyRequest",
		"request_id":  r.ID,
		"property_id": r.PropertyID,
	}).Info("Property request stored")
	c.JSON(http.StatusOK, r)
}
