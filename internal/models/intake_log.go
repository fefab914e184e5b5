package models

import "time"

// IntakeLog records the outcome of every finalized mailbox message
type IntakeLog struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Mailbox   string    `json:"mailbox" gorm:"type:varchar(255);not null;index"`
	UID       uint32    `json:"uid" gorm:"not null"`
	MessageID string    `json:"message_id" gorm:"type:varchar(255);index"`
	Outcome   string    `json:"outcome" gorm:"type:varchar(50);not null"` // created, updated, invalid, junk, not_allowed, failed
	Detail    string    `json:"detail" gorm:"type:text"`
	LeadID    *string   `json:"lead_id" gorm:"type:varchar(36);index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for IntakeLog
func (IntakeLog) TableName() string {
	return "intake_logs"
}
