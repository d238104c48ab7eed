package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricedrp9/pulse-map/internal/dto"
	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
	"github.com/pricedrp9/pulse-map/pkg/response"
)

type availabilityOperator interface {
	Add(ctx context.Context, pulseID, participantID string, key slot.Key) error
	Remove(ctx context.Context, pulseID, participantID string, key slot.Key) error
	List(ctx context.Context, pulseID string) ([]models.MarkRow, error)
	Heatmap(ctx context.Context, pulseID, viewerID string) (*dto.HeatmapView, error)
}

// AvailabilityHandler exposes the slot marking endpoints.
type AvailabilityHandler struct {
	availability availabilityOperator
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityOperator) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// MarkRequest addresses one slot for a participant.
type MarkRequest struct {
	ParticipantID string   `json:"participant_id" binding:"required"`
	Slot          slot.Key `json:"slot"`
}

// Add marks the slot as free for the participant. Re-adding an existing
// mark is a no-op and still returns 204.
func (h *AvailabilityHandler) Add(c *gin.Context) {
	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.availability.Add(c.Request.Context(), c.Param("id"), req.ParticipantID, req.Slot); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove clears the slot for the participant. Removing a missing mark is a
// no-op and still returns 204.
func (h *AvailabilityHandler) Remove(c *gin.Context) {
	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.availability.Remove(c.Request.Context(), c.Param("id"), req.ParticipantID, req.Slot); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List returns the raw marks, or the aggregated heatmap when the view
// query parameter asks for it. participant_id highlights the caller's own
// slots in the heatmap view.
func (h *AvailabilityHandler) List(c *gin.Context) {
	if c.Query("view") == "heatmap" {
		view, err := h.availability.Heatmap(c.Request.Context(), c.Param("id"), c.Query("participant_id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view, nil)
		return
	}

	rows, err := h.availability.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
