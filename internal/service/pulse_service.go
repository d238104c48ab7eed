package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type pulseRepository interface {
	Create(ctx context.Context, pulse *models.Pulse) error
	GetByID(ctx context.Context, id string) (*models.Pulse, error)
	ListByIDs(ctx context.Context, ids []string, page, pageSize int) ([]models.Pulse, int, error)
	Finalize(ctx context.Context, id string, selection models.IntervalList, start, end time.Time) error
	Reopen(ctx context.Context, id string) error
}

// finalizeNotifier triggers the external notification collaborator after a
// successful finalize. The trigger is fire-and-forget; its failure never
// fails or rolls back the commit.
type finalizeNotifier interface {
	Trigger(pulseID string)
}

// PulseService owns the pulse lifecycle: creation, lookup, and the
// finalize/reopen consensus transition.
type PulseService struct {
	pulses       pulseRepository
	participants participantRepository
	availability *AvailabilityService
	feed         feedPublisher
	notifier     finalizeNotifier
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPulseService constructs the service.
func NewPulseService(pulses pulseRepository, participants participantRepository, availability *AvailabilityService, feed feedPublisher, notifier finalizeNotifier, validate *validator.Validate, logger *zap.Logger) *PulseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PulseService{
		pulses:       pulses,
		participants: participants,
		availability: availability,
		feed:         feed,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
	}
	svc.validator.RegisterValidation("pulsemode", func(fl validator.FieldLevel) bool {
		return slot.Mode(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("viewtype", func(fl validator.FieldLevel) bool {
		return slot.ViewType(fl.Field().String()).Valid()
	})
	return svc
}

// CreatePulseRequest describes the create payload. When OrganizerName is
// set the organizer joins as the first participant and their initial
// selection is converted to availability marks.
type CreatePulseRequest struct {
	Title          string     `json:"title" validate:"max=120"`
	Mode           string     `json:"mode" validate:"required,pulsemode"`
	ViewType       string     `json:"view_type" validate:"required,viewtype"`
	StartDate      time.Time  `json:"start_date" validate:"required"`
	Timezone       string     `json:"timezone" validate:"omitempty,max=64"`
	OrganizerName  string     `json:"organizer_name" validate:"max=80"`
	OrganizerEmail *string    `json:"organizer_email" validate:"omitempty,email"`
	Selection      []slot.Key `json:"selection"`
}

// CreatePulseResult carries the new pulse, its organizer capability token,
// and the organizer's participant row when they joined at creation.
type CreatePulseResult struct {
	Pulse       *models.Pulse       `json:"pulse"`
	Organizer   *models.Participant `json:"organizer,omitempty"`
	AccessToken string              `json:"organizer_token"`
}

// Create registers a new pulse in the active state.
func (s *PulseService) Create(ctx context.Context, req CreatePulseRequest) (*CreatePulseResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pulse payload")
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timezone")
		}
	}

	pulse := &models.Pulse{
		Title:     req.Title,
		Mode:      slot.Mode(req.Mode),
		ViewType:  slot.ViewType(req.ViewType),
		StartDate: req.StartDate,
		Timezone:  req.Timezone,
		Status:    models.StatusActive,
	}
	if err := s.pulses.Create(ctx, pulse); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pulse, please try again")
	}

	result := &CreatePulseResult{Pulse: pulse, AccessToken: pulse.OrganizerToken}

	if req.OrganizerName != "" {
		organizer := &models.Participant{
			PulseID:     pulse.ID,
			Name:        req.OrganizerName,
			Email:       req.OrganizerEmail,
			Timezone:    pulse.Timezone,
			IsOrganizer: true,
		}
		if err := s.participants.Create(ctx, organizer); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pulse, please try again")
		}
		result.Organizer = organizer

		if len(req.Selection) > 0 {
			if err := s.availability.AddBatch(ctx, pulse, organizer.ID, req.Selection); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// Get fetches a pulse; a missing row surfaces as the terminal invalid-link
// condition.
func (s *PulseService) Get(ctx context.Context, id string) (*models.Pulse, error) {
	pulse, err := s.pulses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pulse not found or invalid link")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pulse")
	}
	return pulse, nil
}

// List returns the pulses for the caller's locally remembered ids, newest
// first.
func (s *PulseService) List(ctx context.Context, ids []string, page, pageSize int) ([]models.Pulse, *models.Pagination, error) {
	if len(ids) == 0 {
		return nil, &models.Pagination{Page: 1, PageSize: pageSize}, nil
	}
	pulses, total, err := s.pulses.ListByIDs(ctx, ids, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pulses")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	return pulses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Finalize commits the organizer's selection: status flips to confirmed,
// the interval list is stored in insertion order, and the first interval is
// mirrored into the legacy start/end columns. On success the notification
// collaborator is triggered asynchronously.
func (s *PulseService) Finalize(ctx context.Context, pulseID, organizerToken string, keys []slot.Key) (*models.Pulse, error) {
	pulse, err := s.Get(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	if organizerToken == "" || organizerToken != pulse.OrganizerToken {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the organizer can finalize")
	}
	if pulse.Status == models.StatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "pulse is already confirmed")
	}
	if len(keys) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "select at least one slot to finalize")
	}

	loc := pulse.Location()
	selection := make(models.IntervalList, 0, len(keys))
	for _, key := range keys {
		selection = append(selection, key.Interval(pulse.Mode, loc))
	}
	first := selection[0]
	if err := s.pulses.Finalize(ctx, pulse.ID, selection, first.Start, first.End); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize pulse")
	}

	pulse.Status = models.StatusConfirmed
	pulse.FinalizedSelection = selection
	pulse.FinalizedStart = &first.Start
	pulse.FinalizedEnd = &first.End

	s.broadcast(pulse.ID)
	if s.notifier != nil {
		s.notifier.Trigger(pulse.ID)
	}
	return pulse, nil
}

// Reopen reverts a confirmed pulse to voting. No notification is sent.
func (s *PulseService) Reopen(ctx context.Context, pulseID, organizerToken string) (*models.Pulse, error) {
	pulse, err := s.Get(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	if organizerToken == "" || organizerToken != pulse.OrganizerToken {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the organizer can reopen")
	}
	if pulse.Status != models.StatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pulse is not confirmed")
	}
	if err := s.pulses.Reopen(ctx, pulse.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen pulse")
	}

	pulse.Status = models.StatusActive
	pulse.FinalizedSelection = nil
	pulse.FinalizedStart = nil
	pulse.FinalizedEnd = nil

	s.broadcast(pulse.ID)
	return pulse, nil
}

func (s *PulseService) broadcast(pulseID string) {
	ev := notify.Event{PulseID: pulseID, Table: notify.TablePulses, Action: notify.ActionUpdate}
	if err := s.feed.Publish(context.Background(), ev); err != nil {
		s.logger.Warn("feed publish failed", zap.String("pulse_id", pulseID), zap.Error(err))
	}
}
