package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/auth"
	"listing-portal/internal/descriptors"
	"listing-portal/internal/form"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
	"listing-portal/internal/submission"
)

// ListingHandler serves the subtype routes, the property type catalog and
// the dashboard form pages
type ListingHandler struct {
	orchestrator *submission.Orchestrator
	registry     *schema.Registry
	sessions     *auth.Sessions
	mediaBaseURL string
	maxImages    int
	log          *logrus.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(o *submission.Orchestrator, registry *schema.Registry, sessions *auth.Sessions, mediaBaseURL string, log *logrus.Logger) *ListingHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ListingHandler{
		orchestrator: o,
		registry:     registry,
		sessions:     sessions,
		mediaBaseURL: mediaBaseURL,
		log:          log,
	}
}

// WithMaxImages rejects submissions with more than n images before their
// files are read
func (h *ListingHandler) WithMaxImages(n int) *ListingHandler {
	h.maxImages = n
	return h
}

// Create stores a new listing of the :subtype route
func (h *ListingHandler) Create(c *gin.Context) {
	s, ok := subtypeParam(c)
	if !ok {
		return
	}
	payload, ok := readPayload(c, h.maxImages)
	if !ok {
		return
	}
	user, _ := auth.UserFrom(c)

	ext, err := h.orchestrator.Create(c.Request.Context(), user, s, payload)
	if err != nil {
		writeSubmissionError(c, h.log.WithField("subtype", s.Slug()), h.sessions.Unauthorized, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

// Update replaces the listing :id of the :subtype route
func (h *ListingHandler) Update(c *gin.Context) {
	s, ok := subtypeParam(c)
	if !ok {
		return
	}
	payload, ok := readPayload(c, h.maxImages)
	if !ok {
		return
	}
	user, _ := auth.UserFrom(c)

	ext, err := h.orchestrator.Update(c.Request.Context(), user, s, c.Param("id"), payload)
	if err != nil {
		writeSubmissionError(c, h.log.WithField("subtype", s.Slug()), h.sessions.Unauthorized, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

// Get returns the listing with its base record
func (h *ListingHandler) Get(c *gin.Context) {
	s, ok := subtypeParam(c)
	if !ok {
		return
	}
	ext, err := h.orchestrator.Get(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		writeSubmissionError(c, h.log.WithField("subtype", s.Slug()), h.sessions.Unauthorized, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

// PropertyTypes lists every subtype
func (h *ListingHandler) PropertyTypes(c *gin.Context) {
	c.JSON(http.StatusOK, models.PropertyTypes())
}

// Fields returns the field descriptors of one subtype, addressed by id or
// slug
func (h *ListingHandler) Fields(c *gin.Context) {
	s, err := parseSubtype(c.Param("id"))
	if err != nil {
		detail(c, http.StatusNotFound, "Property type not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":   models.PropertyType{ID: s.ID(), Slug: s.Slug(), Title: s.Title()},
		"fields": descriptors.DescriptorsAt(s, h.registry.Now()),
	})
}

// AddForm renders a blank form for the :subtype route
func (h *ListingHandler) AddForm(c *gin.Context) {
	s, ok := subtypeParam(c)
	if !ok {
		return
	}
	h.render(c, form.New(s, h.registry))
}

// EditForm renders a form prefilled from listing :id. Only the owner and
// elevated users may open it.
func (h *ListingHandler) EditForm(c *gin.Context) {
	s, ok := subtypeParam(c)
	if !ok {
		return
	}
	user, ok := auth.UserFrom(c)
	if !ok {
		h.sessions.Unauthorized(c)
		return
	}

	ext, err := h.orchestrator.Get(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		writeSubmissionError(c, h.log.WithField("subtype", s.Slug()), h.sessions.Unauthorized, err)
		return
	}
	base := ext.Base()
	if base == nil || (base.UserID != user.ID && !user.Elevated()) {
		writeSubmissionError(c, h.log.WithField("subtype", s.Slug()), h.sessions.Unauthorized, submission.ErrNotFound)
		return
	}
	h.render(c, form.Edit(h.registry, base, ext))
}

func (h *ListingHandler) render(c *gin.Context, f *form.Form) {
	var buf bytes.Buffer
	if err := f.Render(&buf, form.RenderOptions{MediaBaseURL: h.mediaBaseURL}); err != nil {
		h.log.WithError(err).WithField("subtype", f.Subtype().Slug()).Error("Failed to render form")
		detail(c, http.StatusInternalServerError, "Failed to render form")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
