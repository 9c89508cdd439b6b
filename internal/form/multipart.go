package form

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

type entry struct {
	key   string
	value string
}

// entries flattens the values into transport-safe scalars: arrays become
// repeated keys and nested objects become parent.child keys. Declared fields
// come first in render order, anything else follows sorted by key.
func (f *Form) entries() []entry {
	var out []entry
	seen := make(map[string]bool, len(f.values))
	for _, d := range f.fields {
		if v, ok := f.values[d.Name]; ok {
			out = flatten(out, d.Name, v)
			seen[d.Name] = true
		}
	}
	rest := make([]string, 0, len(f.values))
	for k := range f.values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = flatten(out, k, f.values[k])
	}
	return out
}

func flatten(out []entry, key string, v any) []entry {
	switch val := v.(type) {
	case []string:
		for _, item := range val {
			out = append(out, entry{key, item})
		}
	case []any:
		for _, item := range val {
			out = flatten(out, key, item)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = flatten(out, key+"."+k, val[k])
		}
	default:
		if s, ok := textValue(v); ok {
			out = append(out, entry{key, s})
		}
	}
	return out
}

// Encode writes the values and attachments as one multipart payload. It
// returns the content type carrying the boundary.
func (f *Form) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, e := range f.entries() {
		if err := mw.WriteField(e.key, e.value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", e.key, err)
		}
	}
	for _, a := range f.attachments {
		if err := writeFile(mw, ImagesField, a); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// Payload encodes the form into memory
func (f *Form) Payload() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	contentType, err := f.Encode(&buf)
	if err != nil {
		return nil, "", err
	}
	return &buf, contentType, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, field string, a Attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(a.Name)))
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", a.Name, err)
	}
	if _, err := part.Write(a.Data); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.Name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
