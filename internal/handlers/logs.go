package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxLogLimit = 500

// GetIntakeLogs returns the most recent intake log entries
func (h *Handlers) GetIntakeLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_limit", Message: "Invalid limit", Code: http.StatusBadRequest})
		return
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.store.ListIntakeLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, logs)
}
