package form

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

func testRegistry() *schema.Registry {
	now := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	return schema.NewRegistry(schema.WithClock(func() time.Time { return now }))
}

func png(name string) Attachment {
	return Attachment{Name: name, ContentType: "image/png", Data: []byte(name)}
}

type parsedPayload struct {
	values map[string][]string
	files  []string
}

func parsePayload(t *testing.T, f *Form) parsedPayload {
	t.Helper()
	body, contentType, err := f.Payload()
	require.NoError(t, err)
	return readMultipart(t, body, contentType)
}

func readMultipart(t *testing.T, body io.Reader, contentType string) parsedPayload {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	out := parsedPayload{values: form.Value}
	for _, fh := range form.File[ImagesField] {
		out.files = append(out.files, fh.Filename)
	}
	return out
}

func TestAttach_Policy(t *testing.T) {
	f := New(models.SubtypeLand, testRegistry())

	ok := f.Attach(png("a.png"), Attachment{Name: "doc.pdf", ContentType: "application/pdf"}, png("b.png"))
	assert.True(t, ok)
	require.Len(t, f.Attachments(), 2, "non-image files are skipped")

	ok = f.Attach(png("c.png"), png("d.png"), png("e.png"), png("f.png"), png("g.png"))
	assert.False(t, ok, "selection past the cap is dropped entirely")
	assert.Len(t, f.Attachments(), 2)

	ok = f.Attach(png("c.png"), png("d.png"), png("e.png"), png("f.png"))
	assert.True(t, ok)
	assert.Len(t, f.Attachments(), MaxAttachments)

	f.Detach(0)
	assert.Equal(t, "b.png", f.Attachments()[0].Name)
}

func TestEncode_FlattensValuesAndImages(t *testing.T) {
	f := New(models.SubtypeApartment, testRegistry())
	f.Set("title", "Sunrise")
	f.Set("price", 1500.5)
	f.Set("noOfBedRooms", 2)
	f.Set("utilities", []string{"Water", "Gas"})
	f.Set("availableFrom", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	f.Set("location", map[string]any{"lat": 1.25, "lng": 36.8})
	f.Set("size", (*string)(nil))
	require.True(t, f.Attach(png("one.png"), png("two.png")))

	p := parsePayload(t, f)
	assert.Equal(t, []string{"Sunrise"}, p.values["title"])
	assert.Equal(t, []string{"1500.5"}, p.values["price"])
	assert.Equal(t, []string{"2"}, p.values["noOfBedRooms"])
	assert.Equal(t, []string{"Water", "Gas"}, p.values["utilities"])
	assert.Equal(t, []string{"2024-07-01"}, p.values["availableFrom"])
	assert.Equal(t, []string{"1.25"}, p.values["location.lat"])
	assert.Equal(t, []string{"36.8"}, p.values["location.lng"])
	assert.Equal(t, []string{"true"}, p.values["listed"])
	assert.Equal(t, []string{"false"}, p.values["furnished"])
	assert.NotContains(t, p.values, "size")
	assert.NotContains(t, p.values, ImagesField)
	assert.Equal(t, []string{"one.png", "two.png"}, p.files)
}

func TestValidate_AttachesInlineErrors(t *testing.T) {
	f := New(models.SubtypeApartment, testRegistry())
	f.Set("title", "")
	f.Set("availableFrom", "2024-06-01")

	assert.False(t, f.Validate())
	assert.Equal(t, "Title required", f.Error("title"))
	assert.Equal(t, "Available date must be in the future", f.Error("availableFrom"))
	assert.Nil(t, f.Notification())

	f.Set("title", "ok")
	assert.Empty(t, f.Error("title"))
}

func TestRender_ControlsPerKind(t *testing.T) {
	f := New(models.SubtypeHome, testRegistry())
	f.Set("flooring", []string{"Tile"})
	f.Set("roof", "Metal")
	f.SetErrors(schema.FieldErrors{
		"size":   {"Size is required"},
		"images": {"Atleast one image required"},
	})

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, RenderOptions{}))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	form := doc.Find("form.property-form")
	assert.Equal(t, "/api/properties/home", form.AttrOr("action", ""))
	assert.Equal(t, "multipart/form-data", form.AttrOr("enctype", ""))

	items := doc.Find(".form-item")
	assert.Equal(t, len(f.Fields()), items.Length())
	assert.Equal(t, "features", items.Last().AttrOr("data-field", ""))

	assert.Equal(t, "number", doc.Find(`input[name="yearBuilt"]`).AttrOr("type", ""))
	assert.Equal(t, "2024", doc.Find(`input[name="yearBuilt"]`).AttrOr("max", ""))
	assert.Equal(t, "checkbox", doc.Find(`input[name="basement"]`).AttrOr("type", ""))
	assert.Equal(t, 1, doc.Find(`textarea[name="features"]`).Length())

	flooring := doc.Find(`select[name="flooring"]`)
	_, multiple := flooring.Attr("multiple")
	assert.True(t, multiple)
	assert.Equal(t, "Tile", flooring.Find("option[selected]").AttrOr("value", ""))
	assert.Equal(t, "Metal", doc.Find(`select[name="roof"] option[selected]`).AttrOr("value", ""))

	assert.Equal(t, "Size is required", strings.TrimSpace(doc.Find(`[data-error-for="size"]`).Text()))
	alert := doc.Find(`[role="alert"]`)
	assert.Contains(t, alert.Text(), "Atleast one image required")

	file := doc.Find(`input[type="file"]`)
	assert.Equal(t, "images", file.AttrOr("name", ""))
	assert.Equal(t, "6", file.AttrOr("data-max-files", ""))
}

func TestRender_EditPrefills(t *testing.T) {
	size := "2000"
	base := &models.Property{
		ID:       "7f1d9d1c-2a6e-4c53-9f38-0d7f6f3f0a11",
		Title:    "Plot A",
		Status:   models.ListingStatusOnSale,
		Price:    5000,
		County:   "Nairobi",
		Listed:   false,
		Images:   datatypes.JSONSlice[string]{"media/properties/a.jpeg"},
		TypeID:   models.LandTypeID,
		LandMark: "Highway",
	}
	land := &models.Land{PropertyID: base.ID, RoadAccessNature: models.RoadAccessMurram, Size: &size}

	f := Edit(testRegistry(), base, land)
	assert.Equal(t, http.MethodPut, f.Method())
	assert.Equal(t, "/api/properties/land/"+base.ID, f.Endpoint())

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, RenderOptions{MediaBaseURL: "http://cdn.test/"}))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "Plot A", doc.Find(`input[name="title"]`).AttrOr("value", ""))
	assert.Equal(t, "5000", doc.Find(`input[name="price"]`).AttrOr("value", ""))
	assert.Equal(t, "Murram", doc.Find(`select[name="roadAccessNature"] option[selected]`).AttrOr("value", ""))
	assert.Equal(t, "onSale", doc.Find(`select[name="status"] option[selected]`).AttrOr("value", ""))
	_, checked := doc.Find(`input[name="listed"]`).Attr("checked")
	assert.False(t, checked)
	assert.Equal(t, "http://cdn.test/media/properties/a.jpeg", doc.Find("img.existing-image").AttrOr("src", ""))
}

func TestNew_LandDefaults(t *testing.T) {
	f := New(models.SubtypeLand, testRegistry())
	assert.Equal(t, "My land", f.Value("title"))
	assert.Equal(t, "Tarmac", f.Value("roadAccessNature"))
	assert.Equal(t, true, f.Value("listed"))
	assert.Equal(t, http.MethodPost, f.Method())
	assert.True(t, f.Validate())
}

func TestSubmit(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var got parsedPayload
		var method, path, cookie string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, path, cookie = r.Method, r.URL.Path, r.Header.Get("Cookie")
			got = readMultipart(t, r.Body, r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"propertyId":"abc","roadAccessNature":"Tarmac"}`)
		}))
		defer srv.Close()

		f := New(models.SubtypeLand, testRegistry())
		require.True(t, f.Attach(png("plot.png")))
		res, err := f.Submit(context.Background(), &Client{
			BaseURL: srv.URL,
			Header:  http.Header{"Cookie": {"session=tok"}},
		})
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, "/dashboard/properties/abc/pay", res.Redirect)
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "/api/properties/land", path)
		assert.Equal(t, "session=tok", cookie)
		assert.Equal(t, []string{"plot.png"}, got.files)
		assert.Equal(t, []string{"My land"}, got.values["title"])
		assert.Empty(t, f.Attachments())
		assert.Equal(t, "abc", f.RecordID())
	})

	t.Run("field errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"images":{"_errors":["Atleast one image required"]},"price":{"_errors":["Required","Expected number, received nan"]}}`)
		}))
		defer srv.Close()

		f := New(models.SubtypeLand, testRegistry())
		res, err := f.Submit(context.Background(), &Client{BaseURL: srv.URL})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, "Required,Expected number, received nan", f.Error("price"))
		require.NotNil(t, res.Notification)
		assert.Equal(t, "Atleast one image required", res.Notification.Description)
		assert.Equal(t, "destructive", res.Notification.Variant)
	})

	t.Run("other status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Unauthorized"}`)
		}))
		defer srv.Close()

		f := New(models.SubtypeLand, testRegistry())
		_, err := f.Submit(context.Background(), &Client{BaseURL: srv.URL})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
		assert.Equal(t, "Unauthorized", statusErr.Detail)
	})
}
