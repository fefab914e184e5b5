package handlers

import (
	"time"

	"lead-intake-go/internal/health"
	"lead-intake-go/internal/models"
)

// ErrorResponse is the body of every API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Database  string        `json:"database"`
	Mailbox   MailboxStatus `json:"mailbox"`
}

// MailboxStatus describes the mailbox session and intake health
type MailboxStatus struct {
	Running       bool          `json:"running"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Health        health.Status `json:"health"`
}

// LeadResponse is a lead with its conversations
type LeadResponse struct {
	Lead          *models.LeadRecord    `json:"lead"`
	Conversations []models.Conversation `json:"conversations"`
}
