package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/service"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
	"github.com/pricedrp9/pulse-map/pkg/response"
)

type participantOperator interface {
	Join(ctx context.Context, pulseID string, req service.JoinRequest) (*models.Participant, error)
	Update(ctx context.Context, participantID string, req service.UpdateRequest) (*models.Participant, error)
	List(ctx context.Context, pulseID string) ([]models.Participant, error)
}

// ParticipantHandler exposes participant endpoints.
type ParticipantHandler struct {
	participants participantOperator
}

// NewParticipantHandler constructs ParticipantHandler.
func NewParticipantHandler(participants participantOperator) *ParticipantHandler {
	return &ParticipantHandler{participants: participants}
}

// Join adds a respondent to the pulse.
func (h *ParticipantHandler) Join(c *gin.Context) {
	var req service.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participant, err := h.participants.Join(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participant)
}

// Update renames a participant or toggles their completion flag.
func (h *ParticipantHandler) Update(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participant, err := h.participants.Update(c.Request.Context(), c.Param("participantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participant, nil)
}

// List returns the pulse's respondents in join order.
func (h *ParticipantHandler) List(c *gin.Context) {
	participants, err := h.participants.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participants, nil)
}
