package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// FieldErrors maps a field name to its ordered, non-empty list of messages
type FieldErrors map[string][]string

// FieldErrorSet is the wire shape of one field's messages
type FieldErrorSet struct {
	Errors []string `json:"_errors"`
}

// Add appends a message to field
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Merge appends every message from other
func (e FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		e[field] = append(e[field], messages...)
	}
}

// Has reports whether field has at least one message
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Joined returns the messages for field joined with commas, the way they are
// shown to a person
func (e FieldErrors) Joined(field string) string {
	return strings.Join(e[field], ",")
}

// Fields returns the failing field names sorted
func (e FieldErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Error implements error so a FieldErrors can travel through error returns
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+e.Joined(field))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Format converts to the {field: {_errors: [...]}} response body
func (e FieldErrors) Format() map[string]FieldErrorSet {
	out := make(map[string]FieldErrorSet, len(e))
	for field, messages := range e {
		out[field] = FieldErrorSet{Errors: append([]string(nil), messages...)}
	}
	return out
}

// MarshalJSON writes the formatted shape
func (e FieldErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Format())
}

// UnmarshalJSON reads the formatted shape. Entries without messages are dropped.
func (e *FieldErrors) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := FieldErrors{}
	for field, msg := range raw {
		var set FieldErrorSet
		if err := json.Unmarshal(msg, &set); err != nil {
			// Non-field entries such as {"detail": "..."}
			continue
		}
		if len(set.Errors) > 0 {
			out[field] = set.Errors
		}
	}
	*e = out
	return nil
}
