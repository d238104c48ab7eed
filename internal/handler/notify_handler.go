package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
	"github.com/pricedrp9/pulse-map/pkg/response"
)

type notificationTrigger interface {
	Trigger(pulseID string)
}

// NotifyHandler exposes the finalize notification trigger. The endpoint is
// fire-and-forget: it accepts the request and returns before any delivery
// happens, and delivery failures never surface here.
type NotifyHandler struct {
	dispatcher notificationTrigger
}

// NewNotifyHandler constructs NotifyHandler.
func NewNotifyHandler(dispatcher notificationTrigger) *NotifyHandler {
	return &NotifyHandler{dispatcher: dispatcher}
}

// TriggerRequest names the confirmed pulse to notify about.
type TriggerRequest struct {
	PulseID string `json:"pulse_id" binding:"required"`
}

// Trigger enqueues the finalize notification for a pulse.
func (h *NotifyHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.dispatcher.Trigger(req.PulseID)
	response.JSON(c, http.StatusAccepted, gin.H{"queued": true}, nil)
}
