package models

import "time"

// ProcessingWatermark stores the highest message UID processed for a mailbox.
// Mailbox is keyed by user, host, folder and UIDVALIDITY.
type ProcessingWatermark struct {
	Mailbox   string    `json:"mailbox" gorm:"type:varchar(255);primaryKey"`
	UID       uint32    `json:"uid" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProcessingWatermark
func (ProcessingWatermark) TableName() string {
	return "processing_watermarks"
}
