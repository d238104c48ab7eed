package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/notify"
)

// Reconciler keeps a session's local aggregate eventually consistent with
// the shared store. Every change notification for the pulse's availability,
// participants, or pulse row triggers a refetch, and the refetched aggregate
// fully replaces the local one.
type Reconciler struct {
	session *Session
	store   Refetcher
	feed    Subscriber
	logger  *zap.Logger
}

// NewReconciler wires a reconciler around a session.
func NewReconciler(session *Session, store Refetcher, feed Subscriber, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{session: session, store: store, feed: feed, logger: logger}
}

// Start performs the initial refresh and subscribes to the change feed. The
// returned stop function tears the subscription down.
func (r *Reconciler) Start(ctx context.Context) (func(), error) {
	r.Refresh(ctx)

	tables := []string{notify.TableAvailability, notify.TableParticipants, notify.TablePulses}
	stop, err := r.feed.Subscribe(ctx, r.session.pulseID, tables, func(notify.Event) {
		// Notifications carry no diff; every one means refetch.
		r.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return stop, nil
}

// Refresh refetches the authoritative marks and pulse row and replaces the
// session's local state. A slow optimistic write can be clobbered by a
// refresh that has not observed it yet; the next notification converges.
func (r *Reconciler) Refresh(ctx context.Context) {
	rows, err := r.store.ListMarks(ctx, r.session.pulseID)
	if err != nil {
		r.logger.Warn("availability refresh failed",
			zap.String("pulse_id", r.session.pulseID), zap.Error(err))
	} else {
		r.session.Replace(Aggregate(rows, r.session.viewerID, r.session.mode, r.session.loc))
	}

	pulse, err := r.store.GetPulse(ctx, r.session.pulseID)
	if err != nil {
		r.logger.Warn("pulse refresh failed",
			zap.String("pulse_id", r.session.pulseID), zap.Error(err))
		return
	}
	r.session.SetStatus(pulse.Status)
}
