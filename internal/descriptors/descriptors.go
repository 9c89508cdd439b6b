package descriptors

import (
	"fmt"
	"strconv"
	"time"

	"listing-portal/internal/models"
	"listing-portal/internal/schema"
)

// InputKind is the closed set of form controls a descriptor can ask for
type InputKind string

const (
	KindText        InputKind = "text"
	KindNumber      InputKind = "number"
	KindSelect      InputKind = "select"
	KindMultiSelect InputKind = "multiselect"
	KindCheckbox    InputKind = "checkbox"
	KindTextarea    InputKind = "textarea"
	KindDate        InputKind = "date"
)

// Kinds lists every input kind
func Kinds() []InputKind {
	return []InputKind{KindText, KindNumber, KindSelect, KindMultiSelect, KindCheckbox, KindTextarea, KindDate}
}

// Valid reports whether k is a declared kind
func (k InputKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindSelect, KindMultiSelect, KindCheckbox, KindTextarea, KindDate:
		return true
	}
	return false
}

// Option is one entry of a fixed option set
type Option struct {
	Value string `json:"id"`
	Label string `json:"name"`
}

// FieldDescriptor is the metadata for one form input. Min and Max hold
// numbers for number inputs and 2006-01-02 dates for date inputs.
type FieldDescriptor struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        InputKind `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Description string    `json:"description,omitempty"`
	Min         string    `json:"min,omitempty"`
	Max         string    `json:"max,omitempty"`
	Step        string    `json:"step,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Required    bool      `json:"required"`
}

// FieldFeatures is rendered after every other field
const FieldFeatures = "features"

// DescriptorsFor returns the ordered descriptors for s using the current
// date for date and year bounds
func DescriptorsFor(s models.Subtype) []FieldDescriptor {
	return DescriptorsAt(s, time.Now())
}

// DescriptorsAt returns the ordered descriptors for s with bounds resolved
// against now. Subtype fields come first, then the shared fields, then
// features.
func DescriptorsAt(s models.Subtype, now time.Time) []FieldDescriptor {
	fields := append(extensionFields(s, now), baseFields()...)
	return MoveToEnd(fields, FieldFeatures)
}

// MoveToEnd returns a copy of fields with the named field last. The order of
// the others is kept. A missing name returns an unchanged copy.
func MoveToEnd(fields []FieldDescriptor, name string) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	var moved *FieldDescriptor
	for i := range fields {
		if fields[i].Name == name && moved == nil {
			f := fields[i]
			moved = &f
			continue
		}
		out = append(out, fields[i])
	}
	if moved != nil {
		out = append(out, *moved)
	}
	return out
}

// Lookup finds the descriptor named name
func Lookup(fields []FieldDescriptor, name string) (FieldDescriptor, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

func options(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v}
	}
	return out
}

var statusLabels = map[string]string{
	string(models.ListingStatusOnRent): "On rent",
	string(models.ListingStatusOnSale): "On sale",
}

func baseFields() []FieldDescriptor {
	status := make([]Option, len(schema.StatusOptions))
	for i, v := range schema.StatusOptions {
		status[i] = Option{Value: v, Label: statusLabels[v]}
	}
	return []FieldDescriptor{
		{Name: "title", Label: "Title", Kind: KindText, Placeholder: "e.g Plativen apartments", Required: true},
		{Name: "features", Label: "Features", Kind: KindTextarea, Placeholder: "Enter Feature ...", Required: true},
		{Name: "listed", Label: "Publish Listing", Kind: KindCheckbox, Description: "Make the listing visible to clients"},
		{Name: "price", Label: "Price", Kind: KindNumber, Placeholder: "e.g 4000", Min: "0", Required: true},
		{Name: "status", Label: "Property Status", Kind: KindSelect, Options: status, Required: true},
		{Name: "county", Label: "County", Kind: KindText, Placeholder: "e.g Nairobi", Required: true},
		{Name: "subCounty", Label: "Sub county", Kind: KindText, Placeholder: "e.g Westlands", Required: true},
		{Name: "landMark", Label: "Landmark", Kind: KindText, Placeholder: "Enter popular landmark", Required: true},
	}
}

func extensionFields(s models.Subtype, now time.Time) []FieldDescriptor {
	switch s {
	case models.SubtypeLand:
		return []FieldDescriptor{
			{Name: "roadAccessNature", Label: "Nature of road access", Kind: KindSelect, Options: options(schema.RoadAccessOptions...), Required: true},
			{Name: "size", Label: "Size (square feet size)", Kind: KindText, Placeholder: "e.g 4000"},
		}
	case models.SubtypeApartment:
		return []FieldDescriptor{
			{Name: "noOfBedRooms", Label: "Number of Bedrooms", Kind: KindNumber, Placeholder: "Number of Bedrooms", Min: "1", Step: "1", Required: true},
			{Name: "size", Label: "Size", Kind: KindText, Placeholder: "e.g 80 sqm"},
			{Name: "rentPerMonth", Label: "Rent Per Month", Kind: KindNumber, Placeholder: "Rent Per Month", Min: "0", Required: true},
			{Name: "depositAmount", Label: "Deposit Amount", Kind: KindNumber, Placeholder: "Deposit Amount", Min: "0", Required: true},
			{Name: "availableFrom", Label: "Available From", Kind: KindDate, Min: now.Format(schema.DateLayout), Required: true},
			{Name: "furnished", Label: "Furnished", Kind: KindCheckbox, Description: "The unit comes furnished"},
			{Name: "utilities", Label: "Utilities", Kind: KindMultiSelect, Options: options(schema.UtilityOptions...)},
			{Name: "amenities", Label: "Amenities", Kind: KindMultiSelect, Options: options(schema.AmenityOptions...)},
		}
	case models.SubtypeHome:
		return []FieldDescriptor{
			{Name: "noOfBedRooms", Label: "Number of Bedrooms", Kind: KindNumber, Placeholder: "Number of Bedrooms", Min: "1", Step: "1", Required: true},
			{Name: "noOfBathrooms", Label: "Number of Bathrooms", Kind: KindNumber, Placeholder: "Number of Bathrooms", Min: "1", Step: "1", Required: true},
			{Name: "size", Label: "Size", Kind: KindText, Placeholder: "e.g 250 sqm", Required: true},
			{Name: "plotSize", Label: "Plot Size", Kind: KindText, Placeholder: "e.g 1/8 acre"},
			{
				Name:     "yearBuilt",
				Label:    "Year Built",
				Kind:     KindNumber,
				Min:      strconv.Itoa(schema.MinYearBuilt),
				Max:      strconv.Itoa(now.Year()),
				Step:     "1",
				Required: true,
			},
			{Name: "homeType", Label: "Home Type", Kind: KindSelect, Options: options(schema.HomeTypeOptions...), Required: true},
			{Name: "parkingSpaces", Label: "Parking Spaces", Kind: KindNumber, Min: "0", Step: "1", Required: true},
			{Name: "basement", Label: "Basement", Kind: KindCheckbox, Description: "The home has a basement"},
			{Name: "flooring", Label: "Flooring", Kind: KindMultiSelect, Options: options(schema.FlooringOptions...)},
			{Name: "exteriorMaterial", Label: "Exterior Material", Kind: KindMultiSelect, Options: options(schema.ExteriorOptions...)},
			{Name: "roof", Label: "Roof", Kind: KindSelect, Options: options(schema.RoofOptions...)},
			{Name: "nearbyAmenities", Label: "Nearby Amenities", Kind: KindTextarea, Placeholder: "One per line", Description: "Schools, malls, hospitals"},
		}
	}
	panic(fmt.Sprintf("descriptors: invalid subtype %d", int(s)))
}
