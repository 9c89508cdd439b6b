package models

import "time"

// PropertyChange records one field change made by a base record update
type PropertyChange struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID string    `gorm:"type:varchar(36);not null;index" json:"propertyId"`
	ChangeType string    `gorm:"type:varchar(50);not null" json:"changeType"`
	OldValue   string    `gorm:"type:text" json:"oldValue,omitempty"`
	NewValue   string    `gorm:"type:text" json:"newValue,omitempty"`
	ChangedBy  string    `gorm:"type:varchar(36)" json:"changedBy"`
	DetectedAt time.Time `gorm:"not null;autoCreateTime;index" json:"detectedAt"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypePrice  = "price_changed"
	ChangeTypeStatus = "status_changed"
	ChangeTypeTitle  = "title_changed"
	ChangeTypeListed = "listed_changed"
	ChangeTypeImages = "images_changed"
)
