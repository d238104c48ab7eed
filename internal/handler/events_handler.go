package handler

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/pkg/response"
)

type feedSubscriber interface {
	Subscribe(ctx context.Context, pulseID string, tables []string, fn func(notify.Event)) (func(), error)
}

type streamGauge interface {
	StreamClientConnected(delta int)
}

const heartbeatInterval = 25 * time.Second

// EventsHandler streams change notifications to browsers over SSE. Clients
// treat every event as "something changed, refetch"; the payload carries no
// row data.
type EventsHandler struct {
	feed    feedSubscriber
	metrics streamGauge
	logger  *zap.Logger
}

// NewEventsHandler constructs EventsHandler.
func NewEventsHandler(feed feedSubscriber, metrics streamGauge, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{feed: feed, metrics: metrics, logger: logger}
}

// Stream subscribes the client to the pulse's change feed until it
// disconnects. Heartbeat comments keep intermediaries from closing the
// connection.
func (h *EventsHandler) Stream(c *gin.Context) {
	pulseID := c.Param("id")
	tables := []string{notify.TableAvailability, notify.TableParticipants, notify.TablePulses}

	events := make(chan notify.Event, 16)
	ctx := c.Request.Context()
	stop, err := h.feed.Subscribe(ctx, pulseID, tables, func(ev notify.Event) {
		select {
		case events <- ev:
		default:
			// Slow client; drop the event, the next one triggers the
			// same full refetch anyway.
		}
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stop()

	if h.metrics != nil {
		h.metrics.StreamClientConnected(1)
		defer h.metrics.StreamClientConnected(-1)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("", "ping")
			return true
		case ev := <-events:
			c.SSEvent("change", ev)
			return true
		}
	})
}
