// Package handlers exposes the listing service over gin.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-portal/internal/models"
	"listing-portal/internal/schema"
	"listing-portal/internal/submission"
)

// Indexer receives base records after they are written
type Indexer interface {
	IndexListing(p *models.Property) error
}

func fieldError(field, message string) schema.FieldErrors {
	errs := schema.FieldErrors{}
	errs.Add(field, message)
	return errs
}

func detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// subtypeParam resolves the :subtype slug, answering 404 when it names no
// subtype
func subtypeParam(c *gin.Context) (models.Subtype, bool) {
	s, err := models.ParseSubtypeSlug(c.Param("subtype"))
	if err != nil {
		detail(c, http.StatusNotFound, "Property type not found")
		return 0, false
	}
	return s, true
}

// parseSubtype accepts either the stable id or the slug
func parseSubtype(v string) (models.Subtype, error) {
	if s, err := models.ParseSubtypeID(v); err == nil {
		return s, nil
	}
	return models.ParseSubtypeSlug(v)
}

// readPayload parses the multipart body of c. More than maxImages image
// parts is rejected before any file is read; zero means no cap.
func readPayload(c *gin.Context, maxImages int) (*submission.Payload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		detail(c, http.StatusBadRequest, "Invalid form data")
		return nil, false
	}
	if maxImages > 0 && len(form.File[submission.ImagesField]) > maxImages {
		c.JSON(http.StatusBadRequest, fieldError(submission.ImagesField, tooManyImages(maxImages)))
		return nil, false
	}
	p, err := submission.PayloadFromMultipart(form)
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid form data")
		return nil, false
	}
	return p, true
}

func tooManyImages(n int) string {
	return fmt.Sprintf("Maximum of %d images allowed", n)
}

// limitBody caps the request body at n bytes
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// writeSubmissionError maps an orchestrator error onto the response
func writeSubmissionError(c *gin.Context, log *logrus.Entry, unauthorized func(*gin.Context), err error) {
	var verr *submission.ValidationError
	var derr *submission.DelegateError
	switch {
	case errors.Is(err, submission.ErrUnauthorized):
		unauthorized(c)
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.As(err, &derr) && len(derr.Fields) > 0:
		c.JSON(derr.Status, derr.Fields)
	case errors.As(err, &derr):
		detail(c, derr.Status, derr.Detail())
	case errors.Is(err, submission.ErrNotFound):
		detail(c, http.StatusNotFound, "Property not found")
	default:
		log.WithError(err).Error("Submission failed")
		detail(c, submission.Status(err), "Internal server error")
	}
}
