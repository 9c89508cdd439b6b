package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

type mockDelegate struct {
	calls   []string
	callers []auth.Caller
	err     error
	base    *models.Property
}

func (m *mockDelegate) CreateBase(_ context.Context, caller auth.Caller, _ *Payload) (*models.Property, error) {
	m.calls = append(m.calls, "create")
	m.callers = append(m.callers, caller)
	if m.err != nil {
		return nil, m.err
	}
	return m.base, nil
}

func (m *mockDelegate) UpdateBase(_ context.Context, caller auth.Caller, id string, _ *Payload) (*models.Property, error) {
	m.calls = append(m.calls, "update:"+id)
	m.callers = append(m.callers, caller)
	if m.err != nil {
		return nil, m.err
	}
	return m.base, nil
}

type mockStore struct {
	properties map[string]*models.Property
	extensions map[string]models.Extension
	status     map[string]models.ExtensionStatus
	createErr  error
	created    int
	updated    int
}

func newMockStore() *mockStore {
	return &mockStore{
		properties: map[string]*models.Property{},
		extensions: map[string]models.Extension{},
		status:     map[string]models.ExtensionStatus{},
	}
}

func (m *mockStore) GetProperty(_ context.Context, id string) (*models.Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", id, database.ErrNotFound)
	}
	return p, nil
}

func (m *mockStore) GetExtension(_ context.Context, s models.Subtype, id string) (models.Extension, error) {
	ext, ok := m.extensions[id]
	if !ok || ext.Subtype() != s {
		return nil, fmt.Errorf("%s %s: %w", s.Slug(), id, database.ErrNotFound)
	}
	return ext, nil
}

func (m *mockStore) ExtensionExists(_ context.Context, s models.Subtype, id string) (bool, error) {
	ext, ok := m.extensions[id]
	return ok && ext.Subtype() == s, nil
}

func (m *mockStore) CreateExtension(_ context.Context, ext models.Extension) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created++
	m.extensions[ext.BaseID()] = ext
	return nil
}

func (m *mockStore) UpdateExtension(_ context.Context, ext models.Extension) error {
	m.updated++
	m.extensions[ext.BaseID()] = ext
	return nil
}

func (m *mockStore) SetExtensionStatus(_ context.Context, id string, status models.ExtensionStatus) error {
	m.status[id] = status
	return nil
}

func registry() *schema.Registry {
	return schema.NewRegistry(schema.WithClock(func() time.Time {
		return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	}))
}

func landPayload() *Payload {
	return &Payload{
		Fields: schema.Input{
			"title":            {"Plot A"},
			"price":            {"5000"},
			"county":           {"Nairobi"},
			"subCounty":        {"Westlands"},
			"landMark":         {"Highway"},
			"listed":           {"true"},
			"roadAccessNature": {"Tarmac"},
			"size":             {"2000"},
		},
		Uploads: []Upload{{Field: ImagesField, Name: "a.png", ContentType: "image/png", Data: []byte("png")}},
	}
}

func TestCreate_Land(t *testing.T) {
	store := newMockStore()
	delegate := &mockDelegate{base: &models.Property{ID: "p1", Price: 5000}}
	o := New(registry(), delegate, store, nil)

	user := &auth.User{ID: "u1", IsStaff: true}
	ext, err := o.Create(context.Background(), user, models.SubtypeLand, landPayload())
	require.NoError(t, err)

	land, ok := ext.(*models.Land)
	require.True(t, ok)
	assert.Equal(t, "p1", land.PropertyID)
	assert.Equal(t, models.RoadAccessTarmac, land.RoadAccessNature)
	require.NotNil(t, land.Size)
	assert.Equal(t, "2000", *land.Size)

	assert.Equal(t, []string{"create"}, delegate.calls)
	assert.Equal(t, auth.Caller{UserID: "u1", IsStaff: true, TypeID: models.LandTypeID}, delegate.callers[0])
	assert.Equal(t, models.ExtensionStatusComplete, store.status["p1"])
}

func TestCreate_Unauthorized(t *testing.T) {
	store := newMockStore()
	delegate := &mockDelegate{}
	o := New(registry(), delegate, store, nil)

	_, err := o.Create(context.Background(), nil, models.SubtypeLand, landPayload())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, Status(err))
	assert.Empty(t, delegate.calls)
	assert.Zero(t, store.created)
}

func TestCreate_ValidationShortCircuits(t *testing.T) {
	store := newMockStore()
	delegate := &mockDelegate{}
	o := New(registry(), delegate, store, nil)

	p := landPayload()
	p.Fields["roadAccessNature"] = []string{"Gravel"}
	// base fields are not checked at this stage
	delete(p.Fields, "title")

	_, err := o.Create(context.Background(), &auth.User{ID: "u1"}, models.SubtypeLand, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("roadAccessNature"))
	assert.False(t, verr.Fields.Has("title"))
	assert.Equal(t, http.StatusBadRequest, Status(err))
	assert.Empty(t, delegate.calls)
}

func TestCreate_ApartmentPastDate(t *testing.T) {
	o := New(registry(), &mockDelegate{}, newMockStore(), nil)
	p := &Payload{Fields: schema.Input{
		"noOfBedRooms":  {"2"},
		"rentPerMonth":  {"30000"},
		"depositAmount": {"30000"},
		"availableFrom": {"2024-06-01"},
	}}
	_, err := o.Create(context.Background(), &auth.User{ID: "u1"}, models.SubtypeApartment, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"availableFrom"}, verr.Fields.Fields())
}

func TestCreate_DelegateFailure(t *testing.T) {
	store := newMockStore()
	delegate := &mockDelegate{err: &DelegateError{Status: http.StatusBadRequest, Action: "create"}}
	o := New(registry(), delegate, store, nil)

	_, err := o.Create(context.Background(), &auth.User{ID: "u1"}, models.SubtypeLand, landPayload())
	var derr *DelegateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusBadRequest, Status(err))
	assert.Equal(t, "Failed to create property", derr.Detail())
	assert.Zero(t, store.created)
}

func TestCreate_PersistFailureLeavesPending(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("disk full")
	o := New(registry(), &mockDelegate{base: &models.Property{ID: "p1"}}, store, nil)

	_, err := o.Create(context.Background(), &auth.User{ID: "u1"}, models.SubtypeLand, landPayload())
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, Status(err))
	_, marked := store.status["p1"]
	assert.False(t, marked)
}

func TestUpdate(t *testing.T) {
	store := newMockStore()
	store.properties["p1"] = &models.Property{ID: "p1", UserID: "owner", TypeID: models.LandTypeID}
	store.extensions["p1"] = &models.Land{PropertyID: "p1", RoadAccessNature: models.RoadAccessHighway}
	store.properties["p2"] = &models.Property{ID: "p2", UserID: "owner", TypeID: models.HomeTypeID}

	delegate := &mockDelegate{base: &models.Property{ID: "p1"}}
	o := New(registry(), delegate, store, nil)
	ctx := context.Background()
	owner := &auth.User{ID: "owner"}

	t.Run("owner updates", func(t *testing.T) {
		ext, err := o.Update(ctx, owner, models.SubtypeLand, "p1", landPayload())
		require.NoError(t, err)
		assert.Equal(t, models.RoadAccessTarmac, ext.(*models.Land).RoadAccessNature)
		assert.Equal(t, 1, store.updated)
		assert.Equal(t, []string{"update:p1"}, delegate.calls)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := o.Update(ctx, owner, models.SubtypeLand, "nope", landPayload())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, http.StatusNotFound, Status(err))
	})

	t.Run("other user", func(t *testing.T) {
		_, err := o.Update(ctx, &auth.User{ID: "stranger"}, models.SubtypeLand, "p1", landPayload())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("staff may edit any", func(t *testing.T) {
		_, err := o.Update(ctx, &auth.User{ID: "staff", IsStaff: true}, models.SubtypeLand, "p1", landPayload())
		assert.NoError(t, err)
	})

	t.Run("subtype is immutable", func(t *testing.T) {
		_, err := o.Update(ctx, owner, models.SubtypeLand, "p2", landPayload())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Fields.Has("typeId"))
	})

	t.Run("missing extension is created", func(t *testing.T) {
		store.properties["p3"] = &models.Property{ID: "p3", UserID: "owner", TypeID: models.LandTypeID}
		created := store.created
		_, err := o.Update(ctx, owner, models.SubtypeLand, "p3", landPayload())
		require.NoError(t, err)
		assert.Equal(t, created+1, store.created)
		assert.Equal(t, models.ExtensionStatusComplete, store.status["p3"])
	})
}

func TestGet(t *testing.T) {
	store := newMockStore()
	store.extensions["p1"] = &models.Land{PropertyID: "p1"}
	o := New(registry(), &mockDelegate{}, store, nil)

	ext, err := o.Get(context.Background(), models.SubtypeLand, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", ext.BaseID())

	_, err = o.Get(context.Background(), models.SubtypeHome, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}
