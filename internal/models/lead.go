package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead statuses
const (
	LeadStatusNew = "new"
)

// LeadRecord represents a persisted lead. Email is stored normalized and is the dedup key.
type LeadRecord struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email           string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName       string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName        string    `json:"last_name" gorm:"type:varchar(100)"`
	Phone           string    `json:"phone" gorm:"type:varchar(32)"`
	VehicleInterest string    `json:"vehicle_interest" gorm:"type:varchar(255)"`
	LeadSource      string    `json:"lead_source" gorm:"type:varchar(100)"`
	Status          string    `json:"status" gorm:"type:varchar(50);not null;default:new"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for LeadRecord
func (LeadRecord) TableName() string {
	return "leads"
}

// BeforeCreate assigns an ID when none was set
func (l *LeadRecord) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	return nil
}
