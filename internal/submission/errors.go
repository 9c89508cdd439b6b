package submission

import (
	"errors"
	"fmt"
	"net/http"

	"listing-portal/internal/schema"
)

var (
	// ErrUnauthorized means the caller has no valid session
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the referenced record does not exist or is not
	// visible to the caller
	ErrNotFound = errors.New("not found")
)

// ValidationError carries field-scoped messages for a 400 response
type ValidationError struct {
	Fields schema.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// DelegateError means the base record stage answered with a non-success
// status. Only the status is surfaced to the caller, plus the field errors
// of a 400 so the form can place them.
type DelegateError struct {
	Status int
	Action string // "create" or "update"
	Fields schema.FieldErrors
	Err    error
}

func (e *DelegateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("base %s returned %d: %v", e.Action, e.Status, e.Err)
	}
	return fmt.Sprintf("base %s returned %d", e.Action, e.Status)
}

func (e *DelegateError) Unwrap() error { return e.Err }

// Detail is the generic message shown to the caller
func (e *DelegateError) Detail() string {
	if e.Action == "update" {
		return "Failed to update property"
	}
	return "Failed to create property"
}

// StorageError means images or records could not be written
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Status maps an orchestrator error to its HTTP status
func Status(err error) int {
	var verr *ValidationError
	var derr *DelegateError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &derr):
		return derr.Status
	}
	return http.StatusInternalServerError
}
