package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyRequest is an inquiry a prospective client makes about a listing.
// Notified stays false until the queue worker has sent both notifications.
type PropertyRequest struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID  string     `gorm:"type:varchar(36);not null;index" json:"propertyId"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255);not null" json:"email"`
	PhoneNumber string     `gorm:"type:varchar(20);not null" json:"phoneNumber"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	IsAddressed bool       `gorm:"not null;default:false" json:"isAddressed"`
	Notified    bool       `gorm:"not null;default:false;index" json:"notified"`
	Attempts    int        `gorm:"not null;default:0" json:"-"`
	LastError   string     `gorm:"type:text" json:"-"`
	NotifiedAt  *time.Time `json:"notifiedAt,omitempty"`
	Property    *Property  `gorm:"foreignKey:PropertyID;references:ID" json:"property,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name
func (PropertyRequest) TableName() string {
	return "property_requests"
}

// BeforeCreate assigns a uuid when the caller did not
func (r *PropertyRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// MaxNotifyAttempts before the worker stops retrying a request
const MaxNotifyAttempts = 5
