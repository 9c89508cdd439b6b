package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"listing-portal/internal/models"
)

// Fixed option sets shared with the descriptor catalog
var (
	StatusOptions     = []string{string(models.ListingStatusOnRent), string(models.ListingStatusOnSale)}
	RoadAccessOptions = []string{string(models.RoadAccessHighway), string(models.RoadAccessTarmac), string(models.RoadAccessMurram)}
	UtilityOptions    = []string{"Water", "Electricity", "Internet", "Gas", "Heating"}
	AmenityOptions    = []string{"Parking", "Gym", "Swimming Pool", "Security", "Elevator"}
	HomeTypeOptions   = []string{"Single Family", "Bungalow", "Condo", "Multi-Family"}
	FlooringOptions   = []string{"Hardwood", "Carpet", "Tile", "Vinyl", "Concrete"}
	ExteriorOptions   = []string{"Brick", "Vinyl", "Wood", "Stucco", "Stone"}
	RoofOptions       = []string{"Asphalt", "Metal", "Tile", "Slate", "Other"}
)

const (
	// MinYearBuilt is the earliest accepted construction year
	MinYearBuilt = 1800
	// PhoneNumberExample is the canonical phone number shape
	PhoneNumberExample = "710000000"

	phoneNumberMessage  = "Invalid number, must follow " + PhoneNumberExample
	invalidPropertyType = "Invalid property type"
)

// Registry holds the base, extension and inquiry schemas. It does no I/O.
type Registry struct {
	now        func() time.Time
	base       *Schema
	extensions map[models.Subtype]*Schema
	full       map[models.Subtype]*Schema
	inquiry    *Schema
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the clock used by date and year bounds
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry builds every schema once
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now:        time.Now,
		extensions: make(map[models.Subtype]*Schema, 3),
		full:       make(map[models.Subtype]*Schema, 3),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.base = Object(
		Text("title").Min(1, "Title required"),
		Text("typeId").UUID(invalidPropertyType).Optional(),
		Enum("status", StatusOptions...).Default(string(models.ListingStatusOnRent)),
		Text("features"),
		Text("county").Min(1, "County Required"),
		Text("subCounty").Min(1, "Sub county required"),
		Text("landMark").Min(1, "Landmark required"),
		Bool("listed"),
		Number("price"),
	)

	for _, s := range models.Subtypes() {
		ext := extensionSchema(s)
		r.extensions[s] = ext
		r.full[s] = r.base.Merge(ext)
	}

	r.inquiry = Object(
		Text("propertyId").UUID(""),
		Text("name").Min(1, "Name required"),
		Text("email").Email(""),
		&phoneRule{name: "phoneNumber"},
		Text("message").Min(1, "You must leave your message"),
		Bool("isAddressed"),
	)
	return r
}

func extensionSchema(s models.Subtype) *Schema {
	switch s {
	case models.SubtypeLand:
		return Object(
			Enum("roadAccessNature", RoadAccessOptions...),
			Text("size").Optional(),
		)
	case models.SubtypeApartment:
		return Object(
			Int("noOfBedRooms").Min(1, "Number of bedrooms must be at least 1"),
			Text("size").Optional(),
			Number("rentPerMonth").Positive("Rent must be a positive number"),
			Number("depositAmount").NonNegative("Deposit amount cannot be negative"),
			Date("availableFrom").NotBeforeToday("Available date must be in the future"),
			Bool("furnished").Default(false),
			EnumSet("utilities", UtilityOptions...).Optional(),
			EnumSet("amenities", AmenityOptions...).Optional(),
		)
	case models.SubtypeHome:
		return Object(
			Int("noOfBedRooms").Min(1, "Number of bedrooms must be at least 1"),
			Int("noOfBathrooms").Min(1, "Number of bathrooms must be at least 1"),
			Text("plotSize").Optional(),
			Text("size").Min(1, "Size is required"),
			Int("yearBuilt").
				Min(float64(MinYearBuilt), "Year built must be after 1800").
				MaxFunc(currentYear, "Year built cannot be in the future"),
			Enum("homeType", HomeTypeOptions...),
			Int("parkingSpaces").NonNegative("Number of parking spaces cannot be negative"),
			Bool("basement").Default(false),
			EnumSet("flooring", FlooringOptions...).Optional(),
			EnumSet("exteriorMaterial", ExteriorOptions...).Optional(),
			Enum("roof", RoofOptions...).Optional(),
			Strings("nearbyAmenities").Optional(),
		)
	}
	panic(fmt.Sprintf("schema: invalid subtype %d", int(s)))
}

func currentYear(now time.Time) float64 {
	return float64(now.Year())
}

// Base is the shared schema used by stage one
func (r *Registry) Base() *Schema { return r.base }

// Extension is the subtype delta used by stage two
func (r *Registry) Extension(s models.Subtype) *Schema { return r.extensions[s] }

// Full is the base schema merged with the subtype delta. Forms validate
// against it before submitting.
func (r *Registry) Full(s models.Subtype) *Schema { return r.full[s] }

// Inquiry is the property request schema
func (r *Registry) Inquiry() *Schema { return r.inquiry }

// Now returns the registry clock
func (r *Registry) Now() time.Time { return r.now() }

// Validate runs the full schema for s
func (r *Registry) Validate(s models.Subtype, in Input) (Values, FieldErrors) {
	return r.Full(s).Validate(in, r.now())
}

// BaseRecord is the validated stage one payload
type BaseRecord struct {
	Title     string
	TypeID    *string
	Status    models.ListingStatus
	Features  string
	County    string
	SubCounty string
	LandMark  string
	Listed    bool
	Price     float64
}

// Apply copies the validated fields onto p. Images, owner and subtype are
// set by the caller.
func (b BaseRecord) Apply(p *models.Property) {
	p.Title = b.Title
	p.Status = b.Status
	p.Features = b.Features
	p.County = b.County
	p.SubCounty = b.SubCounty
	p.LandMark = b.LandMark
	p.Listed = b.Listed
	p.Price = b.Price
}

// ValidateBase runs the base schema and returns the typed record
func (r *Registry) ValidateBase(in Input) (BaseRecord, FieldErrors) {
	v, errs := r.base.Validate(in, r.now())
	if errs != nil {
		return BaseRecord{}, errs
	}
	return BaseRecord{
		Title:     v.String("title"),
		TypeID:    v.OptString("typeId"),
		Status:    models.ListingStatus(v.String("status")),
		Features:  v.String("features"),
		County:    v.String("county"),
		SubCounty: v.String("subCounty"),
		LandMark:  v.String("landMark"),
		Listed:    v.Bool("listed"),
		Price:     v.Float("price"),
	}, nil
}

// ValidateExtension runs only the extension fields for s and returns an
// unlinked extension record
func (r *Registry) ValidateExtension(s models.Subtype, in Input) (models.Extension, FieldErrors) {
	v, errs := r.Extension(s).Validate(in, r.now())
	if errs != nil {
		return nil, errs
	}
	switch s {
	case models.SubtypeLand:
		return &models.Land{
			RoadAccessNature: models.RoadAccess(v.String("roadAccessNature")),
			Size:             v.OptString("size"),
		}, nil
	case models.SubtypeApartment:
		return &models.Apartment{
			NoOfBedRooms:  v.Int("noOfBedRooms"),
			Size:          v.OptString("size"),
			RentPerMonth:  v.Float("rentPerMonth"),
			DepositAmount: v.Float("depositAmount"),
			AvailableFrom: v.Time("availableFrom"),
			Furnished:     v.Bool("furnished"),
			Utilities:     v.Strings("utilities"),
			Amenities:     v.Strings("amenities"),
		}, nil
	case models.SubtypeHome:
		return &models.Home{
			NoOfBedRooms:     v.Int("noOfBedRooms"),
			NoOfBathrooms:    v.Int("noOfBathrooms"),
			Size:             v.String("size"),
			PlotSize:         v.OptString("plotSize"),
			YearBuilt:        v.Int("yearBuilt"),
			HomeType:         v.String("homeType"),
			ParkingSpaces:    v.Int("parkingSpaces"),
			Basement:         v.Bool("basement"),
			Flooring:         v.Strings("flooring"),
			ExteriorMaterial: v.Strings("exteriorMaterial"),
			Roof:             v.OptString("roof"),
			NearbyAmenities:  v.Strings("nearbyAmenities"),
		}, nil
	}
	panic(fmt.Sprintf("schema: invalid subtype %d", int(s)))
}

// InquiryRecord is a validated property request
type InquiryRecord struct {
	PropertyID  string
	Name        string
	Email       string
	PhoneNumber string
	Message     string
	IsAddressed bool
}

// ValidateInquiry runs the inquiry schema
func (r *Registry) ValidateInquiry(in Input) (InquiryRecord, FieldErrors) {
	v, errs := r.inquiry.Validate(in, r.now())
	if errs != nil {
		return InquiryRecord{}, errs
	}
	return InquiryRecord{
		PropertyID:  v.String("propertyId"),
		Name:        v.String("name"),
		Email:       v.String("email"),
		PhoneNumber: v.String("phoneNumber"),
		Message:     v.String("message"),
		IsAddressed: v.Bool("isAddressed"),
	}, nil
}

// phoneRule coerces the value to a number and checks its canonical digits:
// nine of them, starting with 1 or 7. A leading zero is dropped by the
// coercion, so 0710000000 is accepted as 710000000.
type phoneRule struct {
	name string
}

func (p *phoneRule) Name() string { return p.name }

func (p *phoneRule) Parse(raw []string, _ time.Time) (any, []string) {
	s, ok := firstValue(raw)
	if !ok {
		return nil, []string{msgExpectedNum}
	}
	s = strings.TrimSpace(s)
	n := 0.0
	if s != "" {
		var err error
		n, err = strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, []string{msgExpectedNum}
		}
	}
	digits := strconv.FormatFloat(n, 'f', -1, 64)
	if len(digits) != 9 || (digits[0] != '1' && digits[0] != '7') {
		return nil, []string{phoneNumberMessage}
	}
	return digits, nil
}
