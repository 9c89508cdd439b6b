package form

import (
	"fmt"
	"strings"
	"time"

	"listing-portal/internal/descriptors"
	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

// MaxAttachments caps the attached image set
const MaxAttachments = 6

// ImagesField is the repeated multipart key images travel under
const ImagesField = "images"

// Attachment is one selected image file. It lives outside the field values
// and is joined with them only when the form is serialized.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the declared type is an image type
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// Notification is a standalone message shown outside any field
type Notification struct {
	Variant     string `json:"variant"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Form is the editable state for one subtype: typed field values, inline
// errors and the separate attachment list.
type Form struct {
	subtype     models.Subtype
	fields      []descriptors.FieldDescriptor
	registry    *schema.Registry
	values      map[string]any
	errors      schema.FieldErrors
	attachments []Attachment

	recordID       string
	existingImages []string
	notification   *Notification
}

// New returns a blank form with the subtype's default values
func New(s models.Subtype, registry *schema.Registry) *Form {
	return &Form{
		subtype:  s,
		fields:   descriptors.DescriptorsAt(s, registry.Now()),
		registry: registry,
		values:   Defaults(s),
		errors:   schema.FieldErrors{},
	}
}

// Edit returns a form prefilled from an existing record. Submitting it
// updates that record.
func Edit(registry *schema.Registry, base *models.Property, ext models.Extension) *Form {
	f := New(ext.Subtype(), registry)
	for k, v := range RecordValues(base, ext) {
		f.values[k] = v
	}
	f.recordID = base.ID
	f.existingImages = append([]string(nil), base.Images...)
	return f
}

// Defaults are the initial values of a new form
func Defaults(s models.Subtype) map[string]any {
	values := map[string]any{
		"status":   string(models.ListingStatusOnRent),
		"features": "",
		"listed":   true,
	}
	switch s {
	case models.SubtypeLand:
		values["title"] = "My land"
		values["price"] = 2.0
		values["county"] = "Nairobi"
		values["subCounty"] = "Westlands"
		values["landMark"] = "Highway"
		values["size"] = "2"
		values["roadAccessNature"] = string(models.RoadAccessTarmac)
	case models.SubtypeApartment:
		values["furnished"] = false
	case models.SubtypeHome:
		values["basement"] = false
		values["parkingSpaces"] = 0
	default:
		panic(fmt.Sprintf("form: invalid subtype %d", int(s)))
	}
	return values
}

// RecordValues maps stored records onto schema-shaped values
func RecordValues(base *models.Property, ext models.Extension) map[string]any {
	values := map[string]any{
		"title":     base.Title,
		"status":    string(base.Status),
		"price":     base.Price,
		"features":  base.Features,
		"county":    base.County,
		"subCounty": base.SubCounty,
		"landMark":  base.LandMark,
		"listed":    base.Listed,
	}
	switch e := ext.(type) {
	case *models.Land:
		values["roadAccessNature"] = string(e.RoadAccessNature)
		values["size"] = e.Size
	case *models.Apartment:
		values["noOfBedRooms"] = e.NoOfBedRooms
		values["size"] = e.Size
		values["rentPerMonth"] = e.RentPerMonth
		values["depositAmount"] = e.DepositAmount
		values["availableFrom"] = e.AvailableFrom
		values["furnished"] = e.Furnished
		values["utilities"] = []string(e.Utilities)
		values["amenities"] = []string(e.Amenities)
	case *models.Home:
		values["noOfBedRooms"] = e.NoOfBedRooms
		values["noOfBathrooms"] = e.NoOfBathrooms
		values["size"] = e.Size
		values["plotSize"] = e.PlotSize
		values["yearBuilt"] = e.YearBuilt
		values["homeType"] = e.HomeType
		values["parkingSpaces"] = e.ParkingSpaces
		values["basement"] = e.Basement
		values["flooring"] = []string(e.Flooring)
		values["exteriorMaterial"] = []string(e.ExteriorMaterial)
		values["roof"] = e.Roof
		values["nearbyAmenities"] = []string(e.NearbyAmenities)
	default:
		panic(fmt.Sprintf("form: unexpected extension %T", ext))
	}
	return values
}

func (f *Form) Subtype() models.Subtype { return f.subtype }

func (f *Form) Fields() []descriptors.FieldDescriptor { return f.fields }

// RecordID is empty for a create form
func (f *Form) RecordID() string { return f.recordID }

// Set stores a field value and clears its inline error
func (f *Form) Set(name string, value any) {
	f.values[name] = value
	delete(f.errors, name)
}

// Value returns the current value of a field
func (f *Form) Value(name string) any { return f.values[name] }

// Errors returns the inline errors by field
func (f *Form) Errors() schema.FieldErrors { return f.errors }

// Error returns the inline message for a field, multiple messages joined
// with commas
func (f *Form) Error(name string) string { return f.errors.Joined(name) }

// Notification returns the pending standalone message, if any
func (f *Form) Notification() *Notification { return f.notification }

// Attachments returns the attached images in selection order
func (f *Form) Attachments() []Attachment {
	return append([]Attachment(nil), f.attachments...)
}

// Attach adds a selection of files. Files without an image type are
// skipped. A selection that would take the set past MaxAttachments is
// dropped entirely and Attach returns false.
func (f *Form) Attach(files ...Attachment) bool {
	if len(f.attachments)+len(files) > MaxAttachments {
		return false
	}
	for _, file := range files {
		if file.IsImage() {
			f.attachments = append(f.attachments, file)
		}
	}
	return true
}

// Detach removes the attachment at index i
func (f *Form) Detach(i int) {
	if i < 0 || i >= len(f.attachments) {
		return
	}
	f.attachments = append(f.attachments[:i], f.attachments[i+1:]...)
}

// Validate checks the current values against the full subtype schema and
// attaches any messages inline. It returns true when the form may be
// submitted.
func (f *Form) Validate() bool {
	in := schema.Input{}
	for _, e := range f.entries() {
		in[e.key] = append(in[e.key], e.value)
	}
	_, errs := f.registry.Validate(f.subtype, in)
	f.errors = schema.FieldErrors{}
	f.errors.Merge(errs)
	return len(f.errors) == 0
}

// SetErrors replaces inline errors with errs. An images error also raises
// a notification since images have no inline slot.
func (f *Form) SetErrors(errs schema.FieldErrors) {
	f.errors = schema.FieldErrors{}
	f.errors.Merge(errs)
	f.notification = nil
	if errs.Has(ImagesField) {
		f.notification = &Notification{
			Variant:     "destructive",
			Title:       "Action Failed!",
			Description: errs.Joined(ImagesField),
		}
	}
}

// textValue renders a scalar the way it is sent over the wire
func textValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case int:
		return fmt.Sprint(val), true
	case float64:
		return formatFloat(val), true
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format(schema.DateLayout), true
	}
	return fmt.Sprint(v), true
}
