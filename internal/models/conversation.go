package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation channels, statuses and message directions
const (
	ChannelEmail     = "email"
	ConversationOpen = "open"
	DirectionInbound = "inbound"
)

// Conversation groups the messages exchanged with a lead
type Conversation struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	LeadID    string    `json:"lead_id" gorm:"type:varchar(36);not null;index"`
	Channel   string    `json:"channel" gorm:"type:varchar(20);not null"`
	Subject   string    `json:"subject" gorm:"type:varchar(998)"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `json:"created_at"`

	Lead *LeadRecord `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
}

// TableName specifies the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate assigns an ID when none was set
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ConversationMessage is a single message attached to a conversation
type ConversationMessage struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(36);not null;index"`
	Direction      string    `json:"direction" gorm:"type:varchar(20);not null"`
	Sender         string    `json:"sender" gorm:"type:varchar(255)"`
	Content        string    `json:"content" gorm:"type:text"`
	ExternalID     string    `json:"external_id" gorm:"type:varchar(255);index"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for ConversationMessage
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

// BeforeCreate assigns an ID when none was set
func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
