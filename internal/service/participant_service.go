package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type participantRepository interface {
	Create(ctx context.Context, p *models.Participant) error
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	ListByPulse(ctx context.Context, pulseID string) ([]models.Participant, error)
	Update(ctx context.Context, p *models.Participant) error
}

// ParticipantService manages respondents of a pulse.
type ParticipantService struct {
	participants participantRepository
	pulses       pulseReader
	feed         feedPublisher
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewParticipantService constructs the service.
func NewParticipantService(participants participantRepository, pulses pulseReader, feed feedPublisher, validate *validator.Validate, logger *zap.Logger) *ParticipantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantService{participants: participants, pulses: pulses, feed: feed, validator: validate, logger: logger}
}

// JoinRequest describes a join payload.
type JoinRequest struct {
	Name     string  `json:"name" validate:"required,max=80"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Timezone string  `json:"timezone" validate:"omitempty,max=64"`
}

// Join registers a new respondent on an active or confirmed pulse.
func (s *ParticipantService) Join(ctx context.Context, pulseID string, req JoinRequest) (*models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}
	pulse, err := s.pulses.GetByID(ctx, pulseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pulse not found or invalid link")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pulse")
	}

	participant := &models.Participant{
		PulseID:  pulse.ID,
		Name:     req.Name,
		Email:    req.Email,
		Timezone: req.Timezone,
	}
	if participant.Timezone == "" {
		participant.Timezone = pulse.Timezone
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join, please try again")
	}
	s.broadcast(pulse.ID, notify.ActionInsert)
	return participant, nil
}

// UpdateRequest describes the mutable participant fields.
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	IsCompleted *bool   `json:"is_completed"`
}

// Update renames a participant or toggles their "I'm done" flag. The flag
// has no effect on aggregation or finalization eligibility.
func (s *ParticipantService) Update(ctx context.Context, participantID string, req UpdateRequest) (*models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	participant, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participant")
	}
	if req.Name != nil {
		participant.Name = *req.Name
	}
	if req.IsCompleted != nil {
		participant.IsCompleted = *req.IsCompleted
	}
	if err := s.participants.Update(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participant")
	}
	s.broadcast(participant.PulseID, notify.ActionUpdate)
	return participant, nil
}

// List returns the pulse's respondents in join order.
func (s *ParticipantService) List(ctx context.Context, pulseID string) ([]models.Participant, error) {
	participants, err := s.participants.ListByPulse(ctx, pulseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participants, nil
}

func (s *ParticipantService) broadcast(pulseID, action string) {
	ev := notify.Event{PulseID: pulseID, Table: notify.TableParticipants, Action: action}
	if err := s.feed.Publish(context.Background(), ev); err != nil {
		s.logger.Warn("feed publish failed", zap.String("pulse_id", pulseID), zap.Error(err))
	}
}
