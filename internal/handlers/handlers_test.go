package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-portal/internal/auth"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/media"
	"listing-portal/internal/models"
	"listing-portal/internal/ratelimit"
	"listing-portal/internal/scheduler"
	"listing-portal/internal/schema"
	"listing-portal/internal/snapshot"
	"listing-portal/internal/submission"
)

type testEnv struct {
	srv      *httptest.Server
	store    *database.GormDB
	storage  *media.MemoryStorage
	sessions *auth.Sessions
	signer   *auth.InternalSigner
}

// newTestEnv serves the full router on a real listener so the base stage
// delegate loops back into the same process
func newTestEnv(t *testing.T, configure ...func(*RouterOptions)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := database.Open("sqlite", database.Options{Logger: log})
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	registry := schema.NewRegistry(schema.WithClock(func() time.Time {
		return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	}))
	storage := media.NewMemoryStorage()
	pipeline := media.NewPipeline(storage, media.Options{Logger: log})

	sessions, err := auth.NewSessions(auth.SessionOptions{Secret: "session-secret"})
	require.NoError(t, err)
	signer, err := auth.NewInternalSigner("internal-secret", time.Minute)
	require.NoError(t, err)

	snapshots := snapshot.NewService(store.DB(), log)
	reconcile := cleanup.NewService(store, nil, log)
	sched := scheduler.NewScheduler(reconcile, config.ReconcileConfig{}, log)

	srv := httptest.NewUnstartedServer(nil)
	delegate := submission.NewHTTPDelegate("http://"+srv.Listener.Addr().String(), signer, nil)
	orchestrator := submission.New(registry, delegate, store, log)

	opts := RouterOptions{
		Base: NewBaseHandler(BaseOptions{
			Store:          store,
			Registry:       registry,
			Pipeline:       pipeline,
			Snapshots:      snapshots,
			MaxAttachments: 6,
			Logger:         log,
		}),
		Listings: NewListingHandler(orchestrator, registry, sessions, "/", log).WithMaxImages(6),
		Requests: NewRequestHandler(store, registry, log),
		Admin:    NewAdminHandler(sched, reconcile, snapshots, log),
		Sessions: sessions,
		Signer:   signer,
		Limiter:  ratelimit.NewKeyedLimiter(5, 0, 0, true),
		Logger:   log,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	srv.Config.Handler = NewRouter(opts)
	srv.Start()
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, storage: storage, sessions: sessions, signer: signer}
}

func (e *testEnv) do(t *testing.T, req *http.Request, user *auth.User) (*http.Response, []byte) {
	t.Helper()
	if user != nil {
		token, err := e.sessions.Issue(*user)
		require.NoError(t, err)
		req.AddCookie(e.sessions.Cookie(token))
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) submit(t *testing.T, method, path string, p *submission.Payload, user *auth.User) (*http.Response, []byte) {
	t.Helper()
	body, contentType, err := p.Encode()
	require.NoError(t, err)
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return e.do(t, req, user)
}

func (e *testEnv) getJSON(t *testing.T, path string, user *auth.User) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req, user)
}

func (e *testEnv) postJSON(t *testing.T, path, body string, user *auth.User) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, user)
}

func (e *testEnv) countProperties(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.store.DB().Model(&models.Property{}).Count(&n).Error)
	return n
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(1200, 900, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func landPayload(t *testing.T, images int) *submission.Payload {
	p := &submission.Payload{Fields: schema.Input{
		"title":            {"Plot A"},
		"price":            {"5000"},
		"county":           {"Nairobi"},
		"subCounty":        {"Westlands"},
		"landMark":         {"Highway"},
		"listed":           {"true"},
		"roadAccessNature": {"Tarmac"},
		"size":             {"2000"},
	}}
	for i := 0; i < images; i++ {
		p.Uploads = append(p.Uploads, submission.Upload{
			Field:       submission.ImagesField,
			Name:        "plot.png",
			ContentType: "image/png",
			Data:        pngImage(t),
		})
	}
	return p
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

var owner = &auth.User{ID: "u1"}

func TestCreateLand(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 1), owner)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	assert.Equal(t, "Tarmac", out["roadAccessNature"])
	assert.Equal(t, "2000", out["size"])

	base, ok := out["property"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, out["propertyId"], base["id"])
	assert.Equal(t, 5000.0, base["price"])
	assert.Equal(t, models.LandTypeID, base["typeId"])
	assert.Equal(t, "u1", base["userId"])
	assert.Equal(t, false, base["isActive"])
	assert.Equal(t, string(models.ExtensionStatusComplete), base["extensionStatus"])
	assert.Nil(t, base["payment"])

	images, ok := base["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.True(t, strings.HasPrefix(images[0].(string), "media/properties/"))
	assert.True(t, strings.HasSuffix(images[0].(string), ".jpeg"))
	assert.Len(t, env.storage.Keys(), 1)
}

func TestCreateLand_StaffIsActiveWithPayment(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 1), &auth.User{ID: "s1", IsStaff: true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	base := decode(t, body)["property"].(map[string]any)
	assert.Equal(t, true, base["isActive"])
	payment, ok := base["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.0, payment["amount"])
	assert.Equal(t, true, payment["complete"])
	assert.Nil(t, payment["merchantRequestId"])
	assert.Nil(t, payment["checkoutRequestId"])
}

func TestCreateLand_NoImages(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 0), owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"images":{"_errors":["Atleast one image required"]}}`, string(body))
	assert.Zero(t, env.countProperties(t))
	assert.Empty(t, env.storage.Keys())
}

func TestCreateLand_TooManyImages(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 7), owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"images":{"_errors":["Maximum of 6 images allowed"]}}`, string(body))
	assert.Zero(t, env.countProperties(t))
	assert.Empty(t, env.storage.Keys())
}

func TestCreateLand_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(o *RouterOptions) { o.MaxUploadBytes = 4 << 10 })

	p := landPayload(t, 0)
	p.Uploads = append(p.Uploads, submission.Upload{
		Field:       submission.ImagesField,
		Name:        "huge.png",
		ContentType: "image/png",
		Data:        bytes.Repeat([]byte{0x42}, 64<<10),
	})
	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", p, owner)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Request body too large"}`, string(body))
	assert.Zero(t, env.countProperties(t))

	t.Run("small bodies still pass", func(t *testing.T) {
		resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 0), owner)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode(t, body), "images")
	})
}

func TestCreateLand_InvalidImage(t *testing.T) {
	env := newTestEnv(t)

	p := landPayload(t, 1)
	p.Uploads[0].Data = []byte("not an image")
	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", p, owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, body), "images")
	assert.Zero(t, env.countProperties(t))
}

func TestCreateLand_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 1), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Unauthorized"}`, string(body))

	cookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, cookie, auth.DefaultCookieName+"=")
	assert.Contains(t, cookie, "Max-Age=0")
	assert.Zero(t, env.countProperties(t))
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("extension field", func(t *testing.T) {
		p := landPayload(t, 1)
		p.Fields["roadAccessNature"] = []string{"Gravel"}
		resp, body := env.submit(t, http.MethodPost, "/api/properties/land", p, owner)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode(t, body), "roadAccessNature")
	})

	t.Run("base field comes back from the base stage", func(t *testing.T) {
		p := landPayload(t, 1)
		delete(p.Fields, "county")
		resp, body := env.submit(t, http.MethodPost, "/api/properties/land", p, owner)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode(t, body), "county")
	})

	t.Run("apartment available in the past", func(t *testing.T) {
		p := landPayload(t, 1)
		p.Fields = schema.Input{
			"title":         {"Flat"},
			"price":         {"30000"},
			"county":        {"Nairobi"},
			"subCounty":     {"Kilimani"},
			"landMark":      {"Yaya"},
			"noOfBedRooms":  {"2"},
			"rentPerMonth":  {"30000"},
			"depositAmount": {"30000"},
			"availableFrom": {"2024-06-01"},
		}
		resp, body := env.submit(t, http.MethodPost, "/api/properties/apartment", p, owner)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		out := decode(t, body)
		assert.Contains(t, out, "availableFrom")
		assert.NotContains(t, out, "title")
	})

	t.Run("unknown subtype", func(t *testing.T) {
		resp, _ := env.submit(t, http.MethodPost, "/api/properties/castle", landPayload(t, 1), owner)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	assert.Zero(t, env.countProperties(t))
}

func createLand(t *testing.T, env *testEnv, user *auth.User) string {
	t.Helper()
	resp, body := env.submit(t, http.MethodPost, "/api/properties/land", landPayload(t, 1), user)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return decode(t, body)["propertyId"].(string)
}

func TestRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	id := createLand(t, env, owner)

	resp, body := env.getJSON(t, "/api/properties/land/"+id, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, id, out["propertyId"])
	assert.Equal(t, id, out["property"].(map[string]any)["id"])
	assert.Equal(t, "Tarmac", out["roadAccessNature"])

	resp, _ = env.getJSON(t, "/api/properties/home/"+id, owner)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateLand(t *testing.T) {
	env := newTestEnv(t)
	id := createLand(t, env, owner)
	staff := &auth.User{ID: "s1", IsStaff: true}

	t.Run("owner keeps images when none are sent", func(t *testing.T) {
		p := landPayload(t, 0)
		p.Fields["title"] = []string{"Plot B"}
		p.Fields["price"] = []string{"7000"}
		p.Fields["roadAccessNature"] = []string{"Murram"}

		resp, body := env.submit(t, http.MethodPut, "/api/properties/land/"+id, p, owner)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		out := decode(t, body)
		assert.Equal(t, "Murram", out["roadAccessNature"])
		base := out["property"].(map[string]any)
		assert.Equal(t, "Plot B", base["title"])
		assert.Equal(t, 7000.0, base["price"])
		assert.Len(t, base["images"], 1)
	})

	t.Run("new images replace the old ones", func(t *testing.T) {
		before := env.storage.Keys()
		resp, body := env.submit(t, http.MethodPut, "/api/properties/land/"+id, landPayload(t, 2), owner)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		images := decode(t, body)["property"].(map[string]any)["images"].([]any)
		assert.Len(t, images, 2)
		assert.Len(t, env.storage.Keys(), 2)
		for _, k := range before {
			assert.NotContains(t, env.storage.Keys(), k)
		}
	})

	t.Run("stranger gets not found", func(t *testing.T) {
		resp, _ := env.submit(t, http.MethodPut, "/api/properties/land/"+id, landPayload(t, 0), &auth.User{ID: "u2"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("subtype cannot change", func(t *testing.T) {
		resp, body := env.submit(t, http.MethodPut, "/api/properties/home/"+id, landPayload(t, 0), owner)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode(t, body), "typeId")
	})

	t.Run("history records the price change", func(t *testing.T) {
		resp, body := env.getJSON(t, "/api/admin/properties/"+id+"/history", staff)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Changes []models.PropertyChange `json:"changes"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		var types []string
		for _, c := range out.Changes {
			types = append(types, c.ChangeType)
		}
		assert.Contains(t, types, models.ChangeTypePrice)
		assert.Contains(t, types, models.ChangeTypeTitle)
	})
}

func TestInternalEndpoint_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		p := landPayload(t, 1)
		body, contentType, err := p.Encode()
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+submission.InternalPropertiesPath, body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(auth.HeaderUserID, "u1")
		req.Header.Set(auth.HeaderUserIsStaff, "true")

		resp, _ := env.do(t, req, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("headers disagree with the token", func(t *testing.T) {
		p := landPayload(t, 1)
		body, contentType, err := p.Encode()
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+submission.InternalPropertiesPath, body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		require.NoError(t, env.signer.Apply(req.Header, auth.Caller{UserID: "u1", TypeID: models.LandTypeID}))
		req.Header.Set(auth.HeaderUserIsStaff, "true")

		resp, _ := env.do(t, req, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	assert.Zero(t, env.countProperties(t))
}

func TestPropertyTypes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.getJSON(t, "/api/property-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var types []models.PropertyType
	require.NoError(t, json.Unmarshal(body, &types))
	assert.Equal(t, models.PropertyTypes(), types)

	for _, key := range []string{models.LandTypeID, "land"} {
		resp, body = env.getJSON(t, "/api/property-types/"+key+"/fields", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"roadAccessNature"`)
	}

	resp, _ = env.getJSON(t, "/api/property-types/castle/fields", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFormPages(t *testing.T) {
	env := newTestEnv(t)

	t.Run("add", func(t *testing.T) {
		resp, body := env.getJSON(t, "/dashboard/properties/land/add", owner)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, 1, doc.Find(`select[name="roadAccessNature"]`).Length())
		assert.Equal(t, 1, doc.Find(`input[type="file"][name="images"]`).Length())
		action, _ := doc.Find("form").Attr("action")
		assert.Equal(t, "/api/properties/land", action)
	})

	t.Run("edit", func(t *testing.T) {
		id := createLand(t, env, owner)
		resp, body := env.getJSON(t, "/dashboard/properties/land/"+id, owner)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		require.NoError(t, err)
		title, _ := doc.Find(`input[name="title"]`).Attr("value")
		assert.Equal(t, "Plot A", title)
		assert.Equal(t, 1, doc.Find("img.existing-image").Length())

		resp, _ = env.getJSON(t, "/dashboard/properties/land/"+id, &auth.User{ID: "u2"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("requires a session", func(t *testing.T) {
		resp, _ := env.getJSON(t, "/dashboard/properties/land/add", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPropertyRequest(t *testing.T) {
	env := newTestEnv(t)
	id := createLand(t, env, owner)

	t.Run("stored", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/property-request", `{
			"propertyId": "`+id+`",
			"name": "Jane",
			"email": "jane@example.com",
			"phoneNumber": 710000000,
			"message": "Is it available?"
		}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		out := decode(t, body)
		assert.Equal(t, id, out["propertyId"])
		assert.Equal(t, false, out["notified"])

		pending, err := env.store.PendingNotifications(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "710000000", pending[0].PhoneNumber)
	})

	t.Run("unknown property", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/property-request", `{
			"propertyId": "0b3d6c52-9d8f-4f5e-9a0e-4f8f0d7d5a11",
			"name": "Jane",
			"email": "jane@example.com",
			"phoneNumber": "710000000",
			"message": "Hello"
		}`, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"propertyId":{"_errors":["Invalid property"]}}`, string(body))
	})

	t.Run("invalid fields", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/property-request", `{"propertyId": "`+id+`", "email": "nope", "phoneNumber": "12"}`, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		out := decode(t, body)
		for _, field := range []string{"name", "email", "phoneNumber", "message"} {
			assert.Contains(t, out, field)
		}
	})
}

func TestPropertyRequest_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i < 6; i++ {
		resp, _ := env.postJSON(t, "/api/property-request", `{}`, nil)
		last = resp.StatusCode
		if i < 5 {
			assert.Equal(t, http.StatusBadRequest, last)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)
	staff := &auth.User{ID: "s1", IsStaff: true}
	ctx := context.Background()

	stale := &models.Property{
		Title: "Half written", Price: 1, County: "Nairobi", SubCounty: "Karen", LandMark: "Mall",
		Images: []string{"media/properties/x.jpeg"}, TypeID: models.HomeTypeID, UserID: "u1",
		IsActive: true, ExtensionStatus: models.ExtensionStatusPending,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, env.store.CreateProperty(ctx, stale))

	t.Run("staff only", func(t *testing.T) {
		resp, _ := env.postJSON(t, "/api/admin/reconcile/run", ``, owner)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = env.getJSON(t, "/api/admin/stats", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("dry run changes nothing", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/admin/reconcile/run?dry_run=true", ``, staff)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		var result cleanup.Result
		require.NoError(t, json.Unmarshal(body, &result))
		assert.True(t, result.DryRun)
		assert.Equal(t, 1, result.OrphanedCount)

		got, err := env.store.GetProperty(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExtensionStatusPending, got.ExtensionStatus)
	})

	t.Run("run orphans the stale record", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/admin/reconcile/run", `{"dry_run": false}`, staff)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		var result cleanup.Result
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, []string{stale.ID}, result.Orphaned)

		got, err := env.store.GetProperty(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExtensionStatusOrphaned, got.ExtensionStatus)
		assert.False(t, got.IsActive)
	})

	t.Run("logs and stats", func(t *testing.T) {
		resp, body := env.getJSON(t, "/api/admin/reconcile/logs", staff)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1.0, decode(t, body)["count"])

		resp, body = env.getJSON(t, "/api/admin/stats", staff)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var stats database.Stats
		require.NoError(t, json.Unmarshal(body, &stats))
		assert.Equal(t, int64(1), stats.TotalProperties)
		assert.Equal(t, int64(1), stats.ReconciledTotal)
	})
}
