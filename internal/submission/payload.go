package submission

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"listing-portal/internal/media"
	"listing-portal/internal/schema"
)

// ImagesField is the multipart key carrying listing photos
const ImagesField = "images"

// Upload is one file part of a submission
type Upload struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Payload is a submission exactly as the client sent it: every text field
// and every file, in their original order per key
type Payload struct {
	Fields  schema.Input
	Uploads []Upload
}

// PayloadFromMultipart reads a parsed multipart form into memory
func PayloadFromMultipart(form *multipart.Form) (*Payload, error) {
	if form == nil {
		return &Payload{Fields: schema.Input{}}, nil
	}
	p := &Payload{Fields: schema.FromMultipart(form)}

	keys := make([]string, 0, len(form.File))
	for k := range form.File {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, fh := range form.File[key] {
			data, err := readFile(fh)
			if err != nil {
				return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
			}
			p.Uploads = append(p.Uploads, Upload{
				Field:       key,
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	return p, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Images returns the files sent under the images key in upload order
func (p *Payload) Images() []media.File {
	var files []media.File
	for _, u := range p.Uploads {
		if u.Field == ImagesField {
			files = append(files, media.File{Name: u.Name, Data: u.Data})
		}
	}
	return files
}

// ExtensionInput is the text input with image entries removed
func (p *Payload) ExtensionInput() schema.Input {
	return p.Fields.Without(ImagesField)
}

// Encode writes the whole payload back as multipart/form-data and returns
// the body with its content type
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range p.Fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, u := range p.Uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(u.Field), quoteEscaper.Replace(u.Name)))
		ct := u.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(u.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
