package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

// Action is the fixed direction of a drag gesture.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// SessionConfig describes one participant's live grid session.
type SessionConfig struct {
	PulseID    string
	Mode       slot.Mode
	Location   *time.Location
	ViewerID   string
	ViewerName string
	Organizer  bool
	Status     string

	Marks  MarkWriter
	Pulses PulseWriter
	Logger *zap.Logger
}

// Session owns the interaction state for one participant viewing one pulse
// grid: the local heatmap cache, the drag state machine, and the organizer's
// finalization selection. All mutations apply optimistically first; durable
// writes are fired on background goroutines and never block or roll back
// the local state.
type Session struct {
	mu sync.Mutex

	pulseID    string
	mode       slot.Mode
	loc        *time.Location
	viewerID   string
	viewerName string
	organizer  bool
	status     string

	heat Heatmap

	dragging   bool
	dragAction Action

	finalizeMode bool
	finalSel     []slot.Key

	marks  MarkWriter
	pulses PulseWriter
	logger *zap.Logger

	writes sync.WaitGroup
}

// NewSession builds an idle session with an empty aggregate.
func NewSession(cfg SessionConfig) *Session {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	status := cfg.Status
	if status == "" {
		status = models.StatusActive
	}
	return &Session{
		pulseID:    cfg.PulseID,
		mode:       cfg.Mode,
		loc:        loc,
		viewerID:   cfg.ViewerID,
		viewerName: cfg.ViewerName,
		organizer:  cfg.Organizer,
		status:     status,
		heat:       NewHeatmap(),
		marks:      cfg.Marks,
		pulses:     cfg.Pulses,
		logger:     logger,
	}
}

// PointerDown handles a press over cell k. In voting mode it decides the
// drag action from the viewer's current availability and starts a drag. In
// finalize mode it toggles k in the finalization selection; no drag starts.
func (s *Session) PointerDown(ctx context.Context, k slot.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.organizer && s.finalizeMode {
		s.toggleFinalSelection(k)
		return
	}

	action := ActionAdd
	if _, mine := s.heat.Mine[k]; mine {
		action = ActionRemove
	}
	s.dragging = true
	s.dragAction = action
	s.applyIntent(ctx, k, action)
}

// PointerEnter handles the pointer crossing into cell k mid-drag. The drag
// action stays fixed for the whole gesture; repeated entries over the same
// cell are no-ops.
func (s *Session) PointerEnter(ctx context.Context, k slot.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.organizer && s.finalizeMode {
		return
	}
	if !s.dragging {
		return
	}
	s.applyIntent(ctx, k, s.dragAction)
}

// PointerUp ends any drag. Callers must route the global release signal
// here, wherever it lands, or a drag ending outside the grid would stick.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
	s.dragAction = ""
}

// SetFinalizeMode switches between voting and finalizing. Only the
// organizer can enter finalize mode. A drag in flight is cut short.
func (s *Session) SetFinalizeMode(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on && !s.organizer {
		return appErrors.Clone(appErrors.ErrForbidden, "only the organizer can finalize")
	}
	s.dragging = false
	s.dragAction = ""
	s.finalizeMode = on
	if !on {
		s.finalSel = nil
	}
	return nil
}

// FinalizeMode reports whether the session is in finalize mode.
func (s *Session) FinalizeMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeMode
}

// Selection returns the finalization selection in insertion order.
func (s *Session) Selection() []slot.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]slot.Key, len(s.finalSel))
	copy(out, s.finalSel)
	return out
}

// Heatmap returns a stable snapshot of the local aggregate.
func (s *Session) Heatmap() Heatmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heat.clone()
}

// Status returns the last known pulse status.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Replace swaps in a freshly aggregated heatmap. Reconciliation is a full
// replace, never a merge, so local and authoritative state cannot fork into
// divergent partial views.
func (s *Session) Replace(h Heatmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heat = h
}

// SetStatus records the authoritative pulse status from a refresh.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Finalize commits the current selection as the pulse outcome. It rejects
// non-organizers, an empty selection, and a pulse that is already
// confirmed. The selection's insertion order is preserved.
func (s *Session) Finalize(ctx context.Context) error {
	s.mu.Lock()
	if !s.organizer {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrForbidden, "only the organizer can finalize")
	}
	if len(s.finalSel) == 0 {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "select at least one slot to finalize")
	}
	if s.status == models.StatusConfirmed {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrFinalized, "pulse is already confirmed")
	}
	keys := make([]slot.Key, len(s.finalSel))
	copy(keys, s.finalSel)
	pulseID := s.pulseID
	s.mu.Unlock()

	if err := s.pulses.FinalizePulse(ctx, pulseID, keys); err != nil {
		return err
	}

	s.mu.Lock()
	s.status = models.StatusConfirmed
	s.finalizeMode = false
	s.finalSel = nil
	s.mu.Unlock()
	return nil
}

// Reopen reverts a confirmed pulse back to voting.
func (s *Session) Reopen(ctx context.Context) error {
	s.mu.Lock()
	if !s.organizer {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrForbidden, "only the organizer can reopen")
	}
	if s.status != models.StatusConfirmed {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "pulse is not confirmed")
	}
	pulseID := s.pulseID
	s.mu.Unlock()

	if err := s.pulses.ReopenPulse(ctx, pulseID); err != nil {
		return err
	}

	s.mu.Lock()
	s.status = models.StatusActive
	s.mu.Unlock()
	return nil
}

// Flush waits for in-flight durable writes, for graceful teardown.
func (s *Session) Flush() {
	s.writes.Wait()
}

// toggleFinalSelection flips k's membership keeping insertion order for the
// keys that stay.
func (s *Session) toggleFinalSelection(k slot.Key) {
	for i, existing := range s.finalSel {
		if existing == k {
			s.finalSel = append(s.finalSel[:i], s.finalSel[i+1:]...)
			return
		}
	}
	s.finalSel = append(s.finalSel, k)
}

// applyIntent applies one (key, action) mutation: no-op check, optimistic
// local delta, then the fire-and-forget durable write. Callers hold s.mu.
func (s *Session) applyIntent(ctx context.Context, k slot.Key, action Action) {
	_, mine := s.heat.Mine[k]
	if action == ActionAdd && mine {
		return
	}
	if action == ActionRemove && !mine {
		return
	}

	iv := k.Interval(s.mode, s.loc)

	if action == ActionAdd {
		s.heat.Mine[k] = struct{}{}
		s.heat.Counts[k]++
		if s.heat.Counts[k] > s.heat.Max {
			s.heat.Max = s.heat.Counts[k]
		}
		s.heat.Names[k] = append(s.heat.Names[k], s.viewerName)
	} else {
		delete(s.heat.Mine, k)
		if s.heat.Counts[k] > 0 {
			s.heat.Counts[k]--
		}
		s.heat.Names[k] = removeName(s.heat.Names[k], s.viewerName)
	}

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		var err error
		if action == ActionAdd {
			err = s.marks.CreateMark(ctx, s.viewerID, s.pulseID, iv)
		} else {
			err = s.marks.DeleteMark(ctx, s.viewerID, iv.Start)
		}
		if err != nil {
			// Optimistic state stays as-is; the next authoritative
			// refresh is the recovery path.
			s.logger.Warn("availability write failed",
				zap.String("pulse_id", s.pulseID),
				zap.String("participant_id", s.viewerID),
				zap.String("action", string(action)),
				zap.String("slot", k.String()),
				zap.Error(err))
		}
	}()
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
