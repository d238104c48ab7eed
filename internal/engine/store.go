package engine

import (
	"context"
	"time"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/internal/slot"
)

// MarkWriter issues durable availability writes. Deletes are keyed by
// (participant, start), never by row id.
type MarkWriter interface {
	CreateMark(ctx context.Context, participantID, pulseID string, iv slot.Interval) error
	DeleteMark(ctx context.Context, participantID string, start time.Time) error
}

// PulseWriter commits the finalize/reopen transition. The selection keys
// arrive in the organizer's insertion order and must be preserved.
type PulseWriter interface {
	FinalizePulse(ctx context.Context, pulseID string, keys []slot.Key) error
	ReopenPulse(ctx context.Context, pulseID string) error
}

// Refetcher reads the authoritative state back for reconciliation.
type Refetcher interface {
	ListMarks(ctx context.Context, pulseID string) ([]models.MarkRow, error)
	GetPulse(ctx context.Context, pulseID string) (*models.Pulse, error)
}

// Subscriber delivers at-least-one change notification per write affecting
// the pulse's rows. There is no ordering or payload-diff guarantee; every
// notification means "refetch".
type Subscriber interface {
	Subscribe(ctx context.Context, pulseID string, tables []string, fn func(notify.Event)) (func(), error)
}
