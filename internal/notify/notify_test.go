package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-portal/internal/models"
)

func TestRender(t *testing.T) {
	out := Render("Hi {{name}}, see {{link}} {{missing}}", map[string]string{
		"name": "Jane",
		"link": "http://x/1",
	})
	assert.Equal(t, "Hi Jane, see http://x/1 {{missing}}", out)
}

func TestBuilder_ForRequest(t *testing.T) {
	r := &models.PropertyRequest{
		PropertyID:  "p1",
		Name:        "Jane",
		Email:       "jane@example.com",
		PhoneNumber: "712345678",
		Property:    &models.Property{Title: "Garden Villa"},
	}

	t.Run("client only", func(t *testing.T) {
		msgs := Builder{}.ForRequest(r)
		require.Len(t, msgs, 1)
		assert.Equal(t, "jane@example.com", msgs[0].To)
		assert.Equal(t, RequestSubject, msgs[0].Subject)
		assert.Contains(t, msgs[0].Text, "Hello Jane")
		assert.Contains(t, msgs[0].Text, "Garden Villa")
	})

	t.Run("with admin", func(t *testing.T) {
		b := Builder{AdminRecipient: "admin@example.com", SiteURL: "https://listings.example.com/"}
		msgs := b.ForRequest(r)
		require.Len(t, msgs, 2)
		admin := msgs[1]
		assert.Equal(t, "admin@example.com", admin.To)
		assert.Contains(t, admin.Text, "Hello Admin")
		assert.Contains(t, admin.Text, "Phone: 712345678")
		assert.Contains(t, admin.Text, "https://listings.example.com/properties/p1")
	})
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	n := NewLogNotifier(log)
	require.NoError(t, n.Send(context.Background(), Message{To: "a@b.c", Subject: "S", Text: "body"}))
	assert.Contains(t, buf.String(), "to=a@b.c")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Send(ctx, Message{}))
}
