package form

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"listing-portal/internal/descriptors"
)

const pageTemplate = `
{{define "text"}}<input type="text" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}"{{with .Placeholder}} placeholder="{{.}}"{{end}}{{if .Required}} required{{end}}>{{end}}
{{define "number"}}<input type="number" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}"{{with .Placeholder}} placeholder="{{.}}"{{end}}{{with .Min}} min="{{.}}"{{end}}{{with .Max}} max="{{.}}"{{end}} step="{{if .Step}}{{.Step}}{{else}}any{{end}}"{{if .Required}} required{{end}}>{{end}}
{{define "date"}}<input type="date" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}"{{with .Min}} min="{{.}}"{{end}}{{with .Max}} max="{{.}}"{{end}}{{if .Required}} required{{end}}>{{end}}
{{define "textarea"}}<textarea id="{{.Name}}" name="{{.Name}}"{{with .Placeholder}} placeholder="{{.}}"{{end}}>{{.Value}}</textarea>{{end}}
{{define "checkbox"}}<input type="checkbox" id="{{.Name}}" name="{{.Name}}" value="true"{{if .Checked}} checked{{end}}>{{end}}
{{define "select"}}<select id="{{.Name}}" name="{{.Name}}"{{if .Required}} required{{end}}>{{if not .Required}}<option value="">Select {{.LowerLabel}}</option>{{end}}{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>{{end}}
{{define "multiselect"}}<select id="{{.Name}}" name="{{.Name}}" multiple>{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>{{end}}

{{define "form"}}<form class="property-form" data-subtype="{{.Subtype}}" method="post" action="{{.Action}}" enctype="multipart/form-data"{{if .Method}} data-method="{{.Method}}"{{end}}>
{{with .Notification}}<div class="notification {{.Variant}}" role="alert"><strong>{{.Title}}</strong> {{.Description}}</div>
{{end}}<fieldset class="property-details"><legend>Property Details</legend>
{{range .Fields}}<div class="form-item" data-field="{{.Name}}" data-kind="{{.Kind}}">
{{if ne .Kind "checkbox"}}<label for="{{.Name}}">{{.Label}}</label>{{end}}{{.Control}}{{if eq .Kind "checkbox"}}<label for="{{.Name}}">{{.Label}}</label>{{with .Description}}<p class="form-description">{{.}}</p>{{end}}{{end}}
{{if .Error}}<p class="form-message" data-error-for="{{.Name}}">{{.Error}}</p>{{end}}
</div>
{{end}}</fieldset>
<fieldset class="property-images"><legend>Property images</legend>
{{range .ExistingImages}}<img class="existing-image" src="{{$.MediaURL .}}" alt="property image">
{{end}}<input type="file" name="images" accept="image/*" multiple data-max-files="{{.MaxFiles}}">
{{range .Attachments}}<span class="attachment">{{.Name}}</span>
{{end}}</fieldset>
<button type="submit">Submit</button>
</form>{{end}}`

var templates = template.Must(template.New("form").Parse(pageTemplate))

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	descriptors.FieldDescriptor
	Value      string
	Checked    bool
	Options    []optionView
	LowerLabel string
	Control    template.HTML
	Error      string
}

type pageView struct {
	Subtype        string
	Action         string
	Method         string
	Notification   *Notification
	Fields         []fieldView
	ExistingImages []string
	Attachments    []Attachment
	MaxFiles       int
	mediaBase      string
}

// MediaURL prefixes a stored relative path with the media base URL
func (p pageView) MediaURL(path string) string {
	return strings.TrimRight(p.mediaBase, "/") + "/" + strings.TrimLeft(path, "/")
}

// RenderOptions controls page level attributes of the rendered form
type RenderOptions struct {
	// MediaBaseURL prefixes existing image paths
	MediaBaseURL string
}

// Render writes the form as HTML. Every descriptor kind has exactly one
// control template; an unknown kind is an error.
func (f *Form) Render(w io.Writer, opts RenderOptions) error {
	page := pageView{
		Subtype:        f.subtype.Slug(),
		Action:         f.Endpoint(),
		Notification:   f.notification,
		ExistingImages: f.existingImages,
		Attachments:    f.attachments,
		MaxFiles:       MaxAttachments,
		mediaBase:      opts.MediaBaseURL,
	}
	if f.recordID != "" {
		page.Method = "PUT"
	}
	for _, d := range f.fields {
		view, err := f.fieldView(d)
		if err != nil {
			return err
		}
		page.Fields = append(page.Fields, view)
	}
	return templates.ExecuteTemplate(w, "form", page)
}

func (f *Form) fieldView(d descriptors.FieldDescriptor) (fieldView, error) {
	view := fieldView{
		FieldDescriptor: d,
		LowerLabel:      strings.ToLower(d.Label),
		Error:           f.Error(d.Name),
	}
	v := f.values[d.Name]

	var name string
	switch d.Kind {
	case descriptors.KindText, descriptors.KindNumber, descriptors.KindDate:
		view.Value, _ = textValue(v)
		name = string(d.Kind)
	case descriptors.KindTextarea:
		if list, ok := v.([]string); ok {
			view.Value = strings.Join(list, "\n")
		} else {
			view.Value, _ = textValue(v)
		}
		name = "textarea"
	case descriptors.KindCheckbox:
		view.Checked, _ = v.(bool)
		name = "checkbox"
	case descriptors.KindSelect:
		current, _ := textValue(v)
		view.Options = optionViews(d.Options, func(s string) bool { return s == current })
		name = "select"
	case descriptors.KindMultiSelect:
		selected := map[string]bool{}
		if list, ok := v.([]string); ok {
			for _, s := range list {
				selected[s] = true
			}
		}
		view.Options = optionViews(d.Options, func(s string) bool { return selected[s] })
		name = "multiselect"
	default:
		return view, fmt.Errorf("form: no control for kind %q of field %s", d.Kind, d.Name)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return view, fmt.Errorf("failed to render %s: %w", d.Name, err)
	}
	view.Control = template.HTML(buf.String())
	return view, nil
}

func optionViews(options []descriptors.Option, selected func(string) bool) []optionView {
	out := make([]optionView, len(options))
	for i, o := range options {
		out[i] = optionView{Value: o.Value, Label: o.Label, Selected: selected(o.Value)}
	}
	return out
}
