package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property is the subtype-agnostic base record shared by all listings
type Property struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string         `gorm:"type:text;not null" json:"title"`
	Status    ListingStatus  `gorm:"type:varchar(20);not null;default:'onRent';index" json:"status"`
	Price     float64        `gorm:"type:decimal(14,2);not null" json:"price"`
	Features  string         `gorm:"type:text" json:"features"`
	County    string         `gorm:"type:varchar(100);not null;index" json:"county"`
	SubCounty string         `gorm:"type:varchar(100);not null" json:"subCounty"`
	LandMark  string         `gorm:"type:varchar(255);not null" json:"landMark"`
	Listed    bool           `gorm:"not null;default:false" json:"listed"`

	// Relative storage paths in upload order
	Images datatypes.JSONSlice[string] `json:"images"`

	// TypeID never changes after creation
	TypeID string `gorm:"type:varchar(36);not null;index" json:"typeId"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"userId"`

	IsActive        bool            `gorm:"not null;default:false" json:"isActive"`
	ExtensionStatus ExtensionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"extensionStatus"`
	Payment         *Payment        `gorm:"foreignKey:PropertyID;references:ID" json:"payment,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_properties_created_at,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// ListingStatus says whether the property is offered for rent or for sale
type ListingStatus string

const (
	ListingStatusOnRent ListingStatus = "onRent"
	ListingStatusOnSale ListingStatus = "onSale"
)

// ExtensionStatus tracks the second stage of a two-stage create
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusComplete ExtensionStatus = "complete"
	ExtensionStatusOrphaned ExtensionStatus = "orphaned"
)

// TableName sets the table name explicitly
func (Property) TableName() string {
	return "properties"
}

// BeforeCreate assigns a uuid when the caller did not
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Subtype resolves the record's TypeID
func (p *Property) Subtype() (Subtype, error) {
	return ParseSubtypeID(p.TypeID)
}

// Payment records the listing fee for a property. Elevated users get a
// complete zero-amount payment at creation.
type Payment struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID        string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"propertyId"`
	Amount            float64   `gorm:"type:decimal(14,2);not null;default:0" json:"amount"`
	Complete          bool      `gorm:"not null;default:false" json:"complete"`
	MerchantRequestID *string   `gorm:"type:varchar(100)" json:"merchantRequestId"`
	CheckoutRequestID *string   `gorm:"type:varchar(100)" json:"checkoutRequestId"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName sets the table name explicitly
func (Payment) TableName() string {
	return "payments"
}
