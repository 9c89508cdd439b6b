package models

import (
	"time"

	"gorm.io/datatypes"
)

// Extension is a subtype-specific record keyed 1:1 to a base Property.
// Land, Apartment and Home are the only implementations.
type Extension interface {
	Subtype() Subtype
	BaseID() string
	LinkTo(propertyID string)
	Base() *Property
}

// RoadAccess is the nature of the road serving a plot of land
type RoadAccess string

const (
	RoadAccessHighway RoadAccess = "Highway"
	RoadAccessTarmac  RoadAccess = "Tarmac"
	RoadAccessMurram  RoadAccess = "Murram"
)

// Land is the extension record for plots
type Land struct {
	PropertyID       string     `gorm:"type:varchar(36);primaryKey" json:"propertyId"`
	RoadAccessNature RoadAccess `gorm:"type:varchar(20);not null" json:"roadAccessNature"`
	Size             *string    `gorm:"type:varchar(100)" json:"size"`
	Property         *Property  `gorm:"foreignKey:PropertyID;references:ID" json:"property,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Land) TableName() string { return "lands" }

func (l *Land) Subtype() Subtype { return SubtypeLand }
func (l *Land) BaseID() string { return l.PropertyID }
func (l *Land) LinkTo(propertyID string) { l.PropertyID = propertyID }
func (l *Land) Base() *Property { return l.Property }

// Apartment is the extension record for rental units
type Apartment struct {
	PropertyID    string                      `gorm:"type:varchar(36);primaryKey" json:"propertyId"`
	NoOfBedRooms  int                         `gorm:"not null" json:"noOfBedRooms"`
	Size          *string                     `gorm:"type:varchar(100)" json:"size"`
	RentPerMonth  float64                     `gorm:"type:decimal(14,2);not null" json:"rentPerMonth"`
	DepositAmount float64                     `gorm:"type:decimal(14,2);not null" json:"depositAmount"`
	AvailableFrom time.Time                   `gorm:"not null" json:"availableFrom"`
	Furnished     bool                        `gorm:"not null;default:false" json:"furnished"`
	Utilities     datatypes.JSONSlice[string] `json:"utilities"`
	Amenities     datatypes.JSONSlice[string] `json:"amenities"`
	Property      *Property                   `gorm:"foreignKey:PropertyID;references:ID" json:"property,omitempty"`
	CreatedAt     time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Apartment) TableName() string { return "apartments" }

func (a *Apartment) Subtype() Subtype { return SubtypeApartment }
func (a *Apartment) BaseID() string { return a.PropertyID }
func (a *Apartment) LinkTo(propertyID string) { a.PropertyID = propertyID }
func (a *Apartment) Base() *Property { return a.Property }

// Home is the extension record for houses
type Home struct {
	PropertyID       string                      `gorm:"type:varchar(36);primaryKey" json:"propertyId"`
	NoOfBedRooms     int                         `gorm:"not null" json:"noOfBedRooms"`
	NoOfBathrooms    int                         `gorm:"not null" json:"noOfBathrooms"`
	Size             string                      `gorm:"type:varchar(100);not null" json:"size"`
	PlotSize         *string                     `gorm:"type:varchar(100)" json:"plotSize"`
	YearBuilt        int                         `gorm:"not null" json:"yearBuilt"`
	HomeType         string                      `gorm:"type:varchar(50);not null" json:"homeType"`
	ParkingSpaces    int                         `gorm:"not null;default:0" json:"parkingSpaces"`
	Basement         bool                        `gorm:"not null;default:false" json:"basement"`
	Flooring         datatypes.JSONSlice[string] `json:"flooring"`
	ExteriorMaterial datatypes.JSONSlice[string] `json:"exteriorMaterial"`
	Roof             *string                     `gorm:"type:varchar(20)" json:"roof"`
	NearbyAmenities  datatypes.JSONSlice[string] `json:"nearbyAmenities"`
	Property         *Property                   `gorm:"foreignKey:PropertyID;references:ID" json:"property,omitempty"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Home) TableName() string { return "homes" }

func (h *Home) Subtype() Subtype { return SubtypeHome }
func (h *Home) BaseID() string { return h.PropertyID }
func (h *Home) LinkTo(propertyID string) { h.PropertyID = propertyID }
func (h *Home) Base() *Property { return h.Property }

// NewExtension returns an empty record for the subtype
func NewExtension(s Subtype) Extension {
	switch s {
	case SubtypeLand:
		return &Land{}
	case SubtypeApartment:
		return &Apartment{}
	case SubtypeHome:
		return &Home{}
	}
	return nil
}
