package models

import "time"

// ReconcileLog records a decision taken by the extension reconciliation sweep
type ReconcileLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID   string    `gorm:"type:varchar(36);not null;index" json:"propertyId"`
	Title        string    `gorm:"type:text" json:"title"`
	TypeID       string    `gorm:"type:varchar(36)" json:"typeId"`
	Outcome      string    `gorm:"type:varchar(20);not null" json:"outcome"`
	PendingSince time.Time `json:"pendingSince"`
	ReconciledAt time.Time `gorm:"not null;autoCreateTime;index" json:"reconciledAt"`
}

// TableName specifies the table name
func (ReconcileLog) TableName() string {
	return "reconcile_logs"
}

// Reconcile outcomes
const (
	ReconcileOutcomeCompleted = "completed"
	ReconcileOutcomeOrphaned  = "orphaned"
)
