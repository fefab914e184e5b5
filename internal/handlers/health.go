package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck reports database reachability and the mailbox intake status.
// A disconnected mailbox degrades the status but does not fail the check.
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Mailbox:   h.mailboxStatus(),
	}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	} else if !response.Mailbox.Health.Connected {
		response.Status = "degraded"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func (h *Handlers) mailboxStatus() MailboxStatus {
	return MailboxStatus{
		Running:       h.mailbox.Running(),
		UptimeSeconds: h.mailbox.Uptime().Seconds(),
		Health:        h.health.Snapshot(),
	}
}
