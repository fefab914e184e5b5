package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lead-intake-go/internal/csvimport"
)

// multipartOverhead is the allowance for multipart framing on top of the CSV size limit
const multipartOverhead = 64 * 1024

// ImportLeads validates an uploaded CSV and, unless dry_run is set, imports its rows.
// The body is either raw CSV or a multipart form with a "file" field.
func (h *Handlers) ImportLeads(c *gin.Context) {
	opts := h.csvOpts
	if v := c.Query("sanitize"); v != "" {
		sanitize, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Invalid sanitize flag", Code: http.StatusBadRequest})
			return
		}
		opts.Sanitize = sanitize
	}
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, opts.MaxFileSize+multipartOverhead)

	data, err := readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "file_too_large",
				Message: "Upload exceeds the maximum file size",
				Code:    http.StatusRequestEntityTooLarge,
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	var result *csvimport.ImportResult
	if dryRun {
		result = &csvimport.ImportResult{Outcome: h.importer.Validate(data, opts)}
	} else {
		result = h.importer.Import(c.Request.Context(), data, opts)
	}

	status := http.StatusOK
	if !result.Outcome.Valid {
		status = http.StatusUnprocessableEntity
	}

	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain) == gin.MIMEPlain {
		c.String(status, csvimport.Report(result.Outcome))
		return
	}
	c.JSON(status, result)
}

func readUpload(c *gin.Context) ([]byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return io.ReadAll(c.Request.Body)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
