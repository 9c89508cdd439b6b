// Package notify builds and sends the messages triggered by property
// requests.
package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"listing-portal/internal/models"
)

// RequestSubject is the subject line of both inquiry messages
const RequestSubject = "Property Request"

// Message templates. Placeholders are written as {{name}}.
const (
	ClientRequestTemplate = "Hello {{client_name}},\n\n" +
		"Thank you for your interest in {{property_title}}. " +
		"Our team has received your request and will get back to you shortly."

	AdminRequestTemplate = "Hello {{staff_name}},\n\n" +
		"{{client_name}} has requested {{property_title}}.\n" +
		"Phone: {{client_phone}}\n" +
		"Email: {{client_email}}\n" +
		"Listing: {{property_link}}"
)

// Message is one outgoing notification
type Message struct {
	To      string
	Subject string
	Text    string
}

// Notifier delivers messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{
		"operation": "Send",
		"to":        msg.To,
		"subject":   msg.Subject,
	}).Info(msg.Text)
	return nil
}

// Render substitutes {{name}} placeholders. Unknown placeholders are left
// as they are.
func Render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Builder produces the client and admin messages for an inquiry
type Builder struct {
	AdminRecipient string
	AdminName      string
	SiteURL        string
}

// PropertyLink is the public page of a listing
func (b Builder) PropertyLink(propertyID string) string {
	return strings.TrimRight(b.SiteURL, "/") + "/properties/" + propertyID
}

// ForRequest returns the client confirmation and, when an admin recipient
// is configured, the staff alert. r.Property must be loaded.
func (b Builder) ForRequest(r *models.PropertyRequest) []Message {
	title := ""
	if r.Property != nil {
		title = r.Property.Title
	}
	msgs := []Message{{
		To:      r.Email,
		Subject: RequestSubject,
		Text: Render(ClientRequestTemplate, map[string]string{
			"client_name":    r.Name,
			"property_title": title,
		}),
	}}
	if b.AdminRecipient == "" {
		return msgs
	}
	staff := b.AdminName
	if staff == "" {
		staff = "Admin"
	}
	return append(msgs, Message{
		To:      b.AdminRecipient,
		Subject: RequestSubject,
		Text: Render(AdminRequestTemplate, map[string]string{
			"staff_name":     staff,
			"client_name":    r.Name,
			"property_title": title,
			"client_phone":   r.PhoneNumber,
			"client_email":   r.Email,
			"property_link":  b.PropertyLink(r.PropertyID),
		}),
	})
}
