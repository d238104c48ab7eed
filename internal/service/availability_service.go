package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/dto"
	"github.com/pricedrp9/pulse-map/internal/engine"
	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type markRepository interface {
	Create(ctx context.Context, mark *models.AvailabilityMark) error
	Delete(ctx context.Context, participantID string, start time.Time) error
	ListByPulse(ctx context.Context, pulseID string) ([]models.MarkRow, error)
}

type pulseReader interface {
	GetByID(ctx context.Context, id string) (*models.Pulse, error)
}

type feedPublisher interface {
	Publish(ctx context.Context, ev notify.Event) error
}

// AvailabilityService applies add/remove mark intents against the store and
// rebroadcasts each write on the change feed.
type AvailabilityService struct {
	marks   markRepository
	pulses  pulseReader
	feed    feedPublisher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(marks markRepository, pulses pulseReader, feed feedPublisher, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{marks: marks, pulses: pulses, feed: feed, metrics: metrics, logger: logger}
}

// Add creates the mark addressed by the slot key. The interval is derived
// from the key in the pulse's timezone; adding an existing mark is a no-op.
func (s *AvailabilityService) Add(ctx context.Context, pulseID, participantID string, key slot.Key) error {
	pulse, err := s.getPulse(ctx, pulseID)
	if err != nil {
		return err
	}
	iv := key.Interval(pulse.Mode, pulse.Location())
	mark := &models.AvailabilityMark{
		ParticipantID: participantID,
		PulseID:       pulseID,
		StartTime:     iv.Start.UTC(),
		EndTime:       iv.End.UTC(),
	}
	if err := s.marks.Create(ctx, mark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}
	s.broadcast(pulseID, notify.ActionInsert)
	return nil
}

// Remove deletes the mark addressed by the slot key, keyed on
// (participant, start). Removing a missing mark is a no-op.
func (s *AvailabilityService) Remove(ctx context.Context, pulseID, participantID string, key slot.Key) error {
	pulse, err := s.getPulse(ctx, pulseID)
	if err != nil {
		return err
	}
	iv := key.Interval(pulse.Mode, pulse.Location())
	if err := s.marks.Delete(ctx, participantID, iv.Start.UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove availability")
	}
	s.broadcast(pulseID, notify.ActionDelete)
	return nil
}

// AddBatch creates one mark per key, used when a pulse is created with the
// organizer's initial selection.
func (s *AvailabilityService) AddBatch(ctx context.Context, pulse *models.Pulse, participantID string, keys []slot.Key) error {
	loc := pulse.Location()
	for _, key := range keys {
		iv := key.Interval(pulse.Mode, loc)
		mark := &models.AvailabilityMark{
			ParticipantID: participantID,
			PulseID:       pulse.ID,
			StartTime:     iv.Start.UTC(),
			EndTime:       iv.End.UTC(),
		}
		if err := s.marks.Create(ctx, mark); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
		}
	}
	if len(keys) > 0 {
		s.broadcast(pulse.ID, notify.ActionInsert)
	}
	return nil
}

// List returns every mark row of the pulse with participant names attached.
func (s *AvailabilityService) List(ctx context.Context, pulseID string) ([]models.MarkRow, error) {
	rows, err := s.marks.ListByPulse(ctx, pulseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return rows, nil
}

// Heatmap aggregates the pulse's marks into the tiered slot view. viewerID
// marks the caller's own slots; pass the empty string for an anonymous view.
func (s *AvailabilityService) Heatmap(ctx context.Context, pulseID, viewerID string) (*dto.HeatmapView, error) {
	pulse, err := s.getPulse(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.marks.ListByPulse(ctx, pulseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}

	started := time.Now()
	heat := engine.Aggregate(rows, viewerID, pulse.Mode, pulse.Location())
	s.metrics.ObserveAggregate(time.Since(started))

	loc := pulse.Location()
	keys := make([]slot.Key, 0, len(heat.Counts))
	for key := range heat.Counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Interval(pulse.Mode, loc).Start.Before(keys[j].Interval(pulse.Mode, loc).Start)
	})

	view := &dto.HeatmapView{
		PulseID:  pulse.ID,
		Status:   pulse.Status,
		MaxCount: heat.Max,
		Slots:    make([]dto.HeatmapSlot, 0, len(keys)),
	}
	for _, key := range keys {
		view.Slots = append(view.Slots, dto.HeatmapSlot{
			Key:          key,
			Count:        heat.Count(key),
			Tier:         heat.Tier(key).String(),
			Participants: heat.NamesFor(key),
			Mine:         heat.HasMine(key),
		})
	}
	return view, nil
}

func (s *AvailabilityService) getPulse(ctx context.Context, pulseID string) (*models.Pulse, error) {
	pulse, err := s.pulses.GetByID(ctx, pulseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pulse not found or invalid link")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pulse")
	}
	return pulse, nil
}

// broadcast publishes a change event; feed failures are logged and
// swallowed, the durable write already succeeded.
func (s *AvailabilityService) broadcast(pulseID, action string) {
	ev := notify.Event{PulseID: pulseID, Table: notify.TableAvailability, Action: action}
	if err := s.feed.Publish(context.Background(), ev); err != nil {
		s.logger.Warn("feed publish failed", zap.String("pulse_id", pulseID), zap.Error(err))
	}
}
