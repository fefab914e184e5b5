package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lead-intake-go/internal/mailbox"
)

// CheckMailbox runs a mailbox check immediately
func (h *Handlers) CheckMailbox(c *gin.Context) {
	res, err := h.mailbox.CheckNow(c.Request.Context())
	if errors.Is(err, mailbox.ErrNotRunning) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "mailbox_not_running",
			Message: "Mailbox intake is not running",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}
	if err != nil {
		logrus.Errorf("Manual mailbox check failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "mailbox_error",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetMailboxStatus returns the mailbox session status
func (h *Handlers) GetMailboxStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.mailboxStatus())
}
