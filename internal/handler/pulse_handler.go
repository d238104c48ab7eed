package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/service"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
	"github.com/pricedrp9/pulse-map/pkg/response"
)

type pulseOperator interface {
	Create(ctx context.Context, req service.CreatePulseRequest) (*service.CreatePulseResult, error)
	Get(ctx context.Context, id string) (*models.Pulse, error)
	List(ctx context.Context, ids []string, page, pageSize int) ([]models.Pulse, *models.Pagination, error)
	Finalize(ctx context.Context, pulseID, organizerToken string, keys []slot.Key) (*models.Pulse, error)
	Reopen(ctx context.Context, pulseID, organizerToken string) (*models.Pulse, error)
}

// PulseHandler exposes the pulse lifecycle endpoints.
type PulseHandler struct {
	pulses pulseOperator
}

// NewPulseHandler constructs PulseHandler.
func NewPulseHandler(pulses pulseOperator) *PulseHandler {
	return &PulseHandler{pulses: pulses}
}

// Create registers a new pulse and returns it with the organizer token.
func (h *PulseHandler) Create(c *gin.Context) {
	var req service.CreatePulseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.pulses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get returns one pulse by id.
func (h *PulseHandler) Get(c *gin.Context) {
	pulse, err := h.pulses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pulse, nil)
}

// List returns the pulses named by the ids query parameter, newest first.
// Clients remember their own pulse ids locally; there are no accounts to
// scope the listing by.
func (h *PulseHandler) List(c *gin.Context) {
	ids := splitIDs(c.Query("ids"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	pulses, pagination, err := h.pulses.List(c.Request.Context(), ids, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pulses, pagination)
}

// FinalizeRequest carries the organizer's slot selection in the order the
// slots were picked.
type FinalizeRequest struct {
	Selection []slot.Key `json:"selection"`
}

// Finalize commits the organizer's selection and confirms the pulse.
func (h *PulseHandler) Finalize(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pulse, err := h.pulses.Finalize(c.Request.Context(), c.Param("id"), organizerToken(c), req.Selection)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pulse, nil)
}

// Reopen reverts a confirmed pulse to voting.
func (h *PulseHandler) Reopen(c *gin.Context) {
	pulse, err := h.pulses.Reopen(c.Request.Context(), c.Param("id"), organizerToken(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pulse, nil)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
