package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricedrp9/pulse-map/pkg/response"
)

type exportRenderer interface {
	RenderCSV(ctx context.Context, pulseID string) ([]byte, error)
	RenderPDF(ctx context.Context, pulseID string) ([]byte, error)
	RenderICS(ctx context.Context, pulseID string) ([]byte, error)
}

// ExportHandler serves the results downloads.
type ExportHandler struct {
	exports exportRenderer
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportRenderer) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CSV downloads the heatmap as CSV.
func (h *ExportHandler) CSV(c *gin.Context) {
	out, err := h.exports.RenderCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, out, "text/csv", fmt.Sprintf("pulse-%s.csv", c.Param("id")))
}

// PDF downloads the heatmap as a printable summary.
func (h *ExportHandler) PDF(c *gin.Context) {
	out, err := h.exports.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, out, "application/pdf", fmt.Sprintf("pulse-%s.pdf", c.Param("id")))
}

// ICS downloads the confirmed selection as an iCalendar document.
func (h *ExportHandler) ICS(c *gin.Context) {
	out, err := h.exports.RenderICS(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, out, "text/calendar", "calendar.ics")
}

func serveDownload(c *gin.Context, body []byte, contentType, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}
