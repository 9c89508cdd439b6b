package form

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"listing-portal/internal/schema"
)

// Client sends forms to the listing API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Header is copied onto every request, typically the session cookie
	Header http.Header
}

// Result is the outcome of a submission the API answered with 200 or 400
type Result struct {
	OK           bool
	PropertyID   string
	Redirect     string
	Notification *Notification
}

// StatusError is returned for any response other than 200 or 400
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("form: submission failed with status %d", e.Status)
	}
	return fmt.Sprintf("form: submission failed with status %d: %s", e.Status, e.Detail)
}

// Endpoint is the create path, or the update path when the form edits an
// existing record
func (f *Form) Endpoint() string {
	path := "/api/properties/" + f.subtype.Slug()
	if f.recordID != "" {
		path += "/" + f.recordID
	}
	return path
}

// Method is POST for create and PUT for update
func (f *Form) Method() string {
	if f.recordID != "" {
		return http.MethodPut
	}
	return http.MethodPost
}

// PaymentPath is where a client goes after saving a listing
func PaymentPath(propertyID string) string {
	return "/dashboard/properties/" + propertyID + "/pay"
}

// Submit serializes the form and sends it. On 200 the result carries the
// navigation target for the saved record. On 400 the field errors are
// attached to the form and the result is not OK.
func (f *Form) Submit(ctx context.Context, c *Client) (*Result, error) {
	body, contentType, err := f.Payload()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, f.Method(), strings.TrimRight(c.BaseURL, "/")+f.Endpoint(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range c.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit form: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var saved struct {
			PropertyID string `json:"propertyId"`
		}
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		verb := "created"
		if f.recordID != "" {
			verb = "updated"
		}
		f.errors = schema.FieldErrors{}
		f.notification = &Notification{
			Variant:     "default",
			Title:       "Success!",
			Description: fmt.Sprintf("Property %s successfully! Kindly complete payment to complete the process", verb),
		}
		f.recordID = saved.PropertyID
		f.attachments = nil
		return &Result{
			OK:           true,
			PropertyID:   saved.PropertyID,
			Redirect:     PaymentPath(saved.PropertyID),
			Notification: f.notification,
		}, nil
	case http.StatusBadRequest:
		var errs schema.FieldErrors
		if err := json.Unmarshal(data, &errs); err != nil {
			return nil, fmt.Errorf("failed to decode field errors: %w", err)
		}
		f.SetErrors(errs)
		return &Result{Notification: f.notification}, nil
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(data, &detail)
	return nil, &StatusError{Status: resp.StatusCode, Detail: detail.Detail}
}
