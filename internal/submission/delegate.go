package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listing-portal/internal/auth"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

// InternalPropertiesPath is the base record endpoint the delegate calls
const InternalPropertiesPath = "/internal/properties"

// HTTPDelegate forwards the original submission to the internal base
// record endpoint with a signed service token
type HTTPDelegate struct {
	baseURL string
	client  *http.Client
	signer  *auth.InternalSigner
	breaker *Breaker
}

// NewHTTPDelegate creates a delegate for the service at baseURL. A nil
// client gets a 30 second timeout.
func NewHTTPDelegate(baseURL string, signer *auth.InternalSigner, client *http.Client) *HTTPDelegate {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPDelegate{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		signer:  signer,
	}
}

// WithBreaker makes the delegate fail fast with 503 while b is open
func (d *HTTPDelegate) WithBreaker(b *Breaker) *HTTPDelegate {
	d.breaker = b
	return d
}

func (d *HTTPDelegate) CreateBase(ctx context.Context, caller auth.Caller, p *Payload) (*models.Property, error) {
	return d.send(ctx, http.MethodPost, d.baseURL+InternalPropertiesPath, "create", caller, p)
}

func (d *HTTPDelegate) UpdateBase(ctx context.Context, caller auth.Caller, id string, p *Payload) (*models.Property, error) {
	return d.send(ctx, http.MethodPut, d.baseURL+InternalPropertiesPath+"/"+id, "update", caller, p)
}

func (d *HTTPDelegate) send(ctx context.Context, method, url, action string, caller auth.Caller, p *Payload) (*models.Property, error) {
	body, contentType, err := p.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if err := d.signer.Apply(req.Header, caller); err != nil {
		return nil, fmt.Errorf("failed to sign internal request: %w", err)
	}

	if d.breaker != nil && !d.breaker.Allow() {
		return nil, &DelegateError{Status: http.StatusServiceUnavailable, Action: action, Err: ErrCircuitOpen}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.record(0)
		return nil, &DelegateError{Status: http.StatusBadGateway, Action: action, Err: err}
	}
	defer resp.Body.Close()
	d.record(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		derr := &DelegateError{Status: resp.StatusCode, Action: action}
		if resp.StatusCode == http.StatusBadRequest {
			var fields schema.FieldErrors
			if json.Unmarshal(body, &fields) == nil && len(fields) > 0 {
				derr.Fields = fields
			}
		}
		if len(body) > 512 {
			body = body[:512]
		}
		derr.Err = errors.New(strings.TrimSpace(string(body)))
		return nil, derr
	}

	var property models.Property
	if err := json.NewDecoder(resp.Body).Decode(&property); err != nil {
		return nil, &DelegateError{Status: http.StatusBadGateway, Action: action, Err: fmt.Errorf("invalid base record: %w", err)}
	}
	if property.ID == "" {
		return nil, &DelegateError{Status: http.StatusBadGateway, Action: action, Err: errors.New("base record has no id")}
	}
	return &property, nil
}

func (d *HTTPDelegate) record(status int) {
	if d.breaker == nil {
		return
	}
	if status == 0 || status >= http.StatusInternalServerError {
		d.breaker.RecordFailure(status)
		return
	}
	d.breaker.RecordSuccess()
}
