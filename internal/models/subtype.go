package models

import (
	"errors"
	"fmt"
)

// Subtype is the closed set of property variants. Every consumer must switch
// over all three values.
type Subtype int

const (
	SubtypeLand Subtype = iota + 1
	SubtypeApartment
	SubtypeHome
)

// Stable external identifiers for each subtype
const (
	LandTypeID      = "78364b23-95c3-49a8-b698-04950a728f37"
	ApartmentTypeID = "78364b23-95c3-49a8-b698-04950a728f35"
	HomeTypeID      = "78364b23-95c3-49a8-b698-04950a728f40"
)

// ErrUnknownSubtype is returned when an identifier or slug names no subtype
var ErrUnknownSubtype = errors.New("unknown property subtype")

// Subtypes lists every subtype in display order
func Subtypes() []Subtype {
	return []Subtype{SubtypeLand, SubtypeApartment, SubtypeHome}
}

// ID returns the stable identifier stored on base records
func (s Subtype) ID() string {
	switch s {
	case SubtypeLand:
		return LandTypeID
	case SubtypeApartment:
		return ApartmentTypeID
	case SubtypeHome:
		return HomeTypeID
	}
	panic(fmt.Sprintf("models: invalid subtype %d", int(s)))
}

// Slug is the path segment used by the subtype routes
func (s Subtype) Slug() string {
	switch s {
	case SubtypeLand:
		return "land"
	case SubtypeApartment:
		return "apartment"
	case SubtypeHome:
		return "home"
	}
	panic(fmt.Sprintf("models: invalid subtype %d", int(s)))
}

// Title is the human readable name
func (s Subtype) Title() string {
	switch s {
	case SubtypeLand:
		return "Land"
	case SubtypeApartment:
		return "Apartment"
	case SubtypeHome:
		return "Home"
	}
	panic(fmt.Sprintf("models: invalid subtype %d", int(s)))
}

func (s Subtype) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Subtype(%d)", int(s))
	}
	return s.Slug()
}

// Valid reports whether s is one of the declared subtypes
func (s Subtype) Valid() bool {
	return s >= SubtypeLand && s <= SubtypeHome
}

// ParseSubtypeID resolves a stable identifier
func ParseSubtypeID(id string) (Subtype, error) {
	for _, s := range Subtypes() {
		if s.ID() == id {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: id %q", ErrUnknownSubtype, id)
}

// ParseSubtypeSlug resolves a route slug
func ParseSubtypeSlug(slug string) (Subtype, error) {
	for _, s := range Subtypes() {
		if s.Slug() == slug {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: slug %q", ErrUnknownSubtype, slug)
}

// PropertyType is the JSON shape listed by the property-types endpoint
type PropertyType struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PropertyTypes returns every subtype as a PropertyType
func PropertyTypes() []PropertyType {
	types := make([]PropertyType, 0, 3)
	for _, s := range Subtypes() {
		types = append(types, PropertyType{ID: s.ID(), Slug: s.Slug(), Title: s.Title()})
	}
	return types
}
