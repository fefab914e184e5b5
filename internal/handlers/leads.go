package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lead-intake-go/internal/leads"
)

// GetLead returns a lead and its conversations by email
func (h *Handlers) GetLead(c *gin.Context) {
	ctx := c.Request.Context()

	lead, err := h.store.GetByEmail(ctx, c.Param("email"))
	if errors.Is(err, leads.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Lead not found", Code: http.StatusNotFound})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch lead",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	convs, err := h.store.ListConversations(ctx, lead.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch conversations",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, LeadResponse{Lead: lead, Conversations: convs})
}
