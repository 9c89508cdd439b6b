// Package submission creates and updates subtype listings in two stages: the
// base record through the internal endpoint, then the extension record
// keyed to it.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

// Delegate performs the base record stage
type Delegate interface {
	CreateBase(ctx context.Context, caller auth.Caller, p *Payload) (*models.Property, error)
	UpdateBase(ctx context.Context, caller auth.Caller, id string, p *Payload) (*models.Property, error)
}

// ExtensionStore persists extension records
type ExtensionStore interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetExtension(ctx context.Context, s models.Subtype, id string) (models.Extension, error)
	ExtensionExists(ctx context.Context, s models.Subtype, id string) (bool, error)
	CreateExtension(ctx context.Context, ext models.Extension) error
	UpdateExtension(ctx context.Context, ext models.Extension) error
	SetExtensionStatus(ctx context.Context, id string, status models.ExtensionStatus) error
}

// Orchestrator runs AuthCheck, ValidateExtension, the base stage and
// PersistExtension strictly in that order
type Orchestrator struct {
	registry *schema.Registry
	delegate Delegate
	store    ExtensionStore
	log      *logrus.Logger
}

// New creates an orchestrator
func New(registry *schema.Registry, delegate Delegate, store ExtensionStore, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{registry: registry, delegate: delegate, store: store, log: log}
}

// Create stores a new listing of subtype s and returns the extension with
// its base record loaded
func (o *Orchestrator) Create(ctx context.Context, user *auth.User, s models.Subtype, p *Payload) (models.Extension, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	logger := o.log.WithFields(logrus.Fields{"operation": "Create", "subtype": s.Slug(), "user_id": user.ID})

	ext, errs := o.registry.ValidateExtension(s, p.ExtensionInput())
	if errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	base, err := o.delegate.CreateBase(ctx, auth.CallerFor(user, s.ID()), p)
	if err != nil {
		logger.WithError(err).Warn("Base stage failed")
		return nil, err
	}

	ext.LinkTo(base.ID)
	if err := o.store.CreateExtension(ctx, ext); err != nil {
		// the base record stays pending and is picked up by reconciliation
		logger.WithError(err).WithField("property_id", base.ID).Error("Failed to persist extension")
		return nil, &StorageError{Op: "persist " + s.Slug(), Err: err}
	}

	o.markComplete(ctx, logger, base.ID)
	logger.WithField("property_id", base.ID).Info("Property created")
	return o.load(ctx, s, base.ID, ext)
}

// Update replaces the listing id of subtype s. The subtype of an existing
// record never changes.
func (o *Orchestrator) Update(ctx context.Context, user *auth.User, s models.Subtype, id string, p *Payload) (models.Extension, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	logger := o.log.WithFields(logrus.Fields{"operation": "Update", "subtype": s.Slug(), "user_id": user.ID, "property_id": id})

	current, err := o.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", s.Slug(), id, ErrNotFound)
		}
		return nil, err
	}
	if current.UserID != user.ID && !user.Elevated() {
		return nil, fmt.Errorf("%s %s: %w", s.Slug(), id, ErrNotFound)
	}
	if current.TypeID != s.ID() {
		errs := schema.FieldErrors{}
		errs.Add("typeId", "Property type cannot be changed")
		return nil, &ValidationError{Fields: errs}
	}

	ext, errs := o.registry.ValidateExtension(s, p.ExtensionInput())
	if errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	if _, err := o.delegate.UpdateBase(ctx, auth.CallerFor(user, s.ID()), id, p); err != nil {
		logger.WithError(err).Warn("Base stage failed")
		return nil, err
	}

	ext.LinkTo(id)
	exists, err := o.store.ExtensionExists(ctx, s, id)
	if err == nil {
		if exists {
			err = o.store.UpdateExtension(ctx, ext)
		} else {
			err = o.store.CreateExtension(ctx, ext)
		}
	}
	if err != nil {
		logger.WithError(err).Error("Failed to persist extension")
		return nil, &StorageError{Op: "persist " + s.Slug(), Err: err}
	}

	o.markComplete(ctx, logger, id)
	logger.Info("Property updated")
	return o.load(ctx, s, id, ext)
}

// Get returns the extension with its base record
func (o *Orchestrator) Get(ctx context.Context, s models.Subtype, id string) (models.Extension, error) {
	ext, err := o.store.GetExtension(ctx, s, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", s.Slug(), id, ErrNotFound)
	}
	return ext, err
}

func (o *Orchestrator) markComplete(ctx context.Context, logger *logrus.Entry, id string) {
	if err := o.store.SetExtensionStatus(ctx, id, models.ExtensionStatusComplete); err != nil {
		logger.WithError(err).Warn("Failed to mark extension complete")
	}
}

// load re-reads the stored extension so the response carries the base
// record. The written value is returned if the read fails.
func (o *Orchestrator) load(ctx context.Context, s models.Subtype, id string, written models.Extension) (models.Extension, error) {
	ext, err := o.store.GetExtension(ctx, s, id)
	if err != nil {
		o.log.WithError(err).WithField("property_id", id).Warn("Failed to reload extension")
		return written, nil
	}
	return ext, nil
}
