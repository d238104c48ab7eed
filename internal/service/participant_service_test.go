package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type recordingParticipantRepo struct {
	fakeParticipantRepo
	stored  *models.Participant
	updated *models.Participant
}

func (r *recordingParticipantRepo) GetByID(_ context.Context, _ string) (*models.Participant, error) {
	clone := *r.stored
	return &clone, nil
}

func (r *recordingParticipantRepo) Update(_ context.Context, p *models.Participant) error {
	r.updated = p
	return nil
}

func TestJoinInheritsPulseTimezone(t *testing.T) {
	pulse := activePulse()
	pulse.Timezone = "Europe/Berlin"
	repo := &recordingParticipantRepo{}
	feed := &fakeFeed{}
	svc := NewParticipantService(repo, &fakePulseRepo{pulse: pulse}, feed, nil, nil)

	participant, err := svc.Join(context.Background(), "pulse-1", JoinRequest{Name: "Ana"})

	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", participant.Timezone)
	assert.False(t, participant.IsOrganizer)

	events := feed.published()
	require.Len(t, events, 1)
	assert.Equal(t, notify.TableParticipants, events[0].Table)
	assert.Equal(t, notify.ActionInsert, events[0].Action)
}

func TestJoinKeepsExplicitTimezone(t *testing.T) {
	repo := &recordingParticipantRepo{}
	svc := NewParticipantService(repo, &fakePulseRepo{pulse: activePulse()}, &fakeFeed{}, nil, nil)

	participant, err := svc.Join(context.Background(), "pulse-1", JoinRequest{Name: "Ben", Timezone: "Asia/Tokyo"})

	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", participant.Timezone)
}

func TestJoinValidatesName(t *testing.T) {
	svc := NewParticipantService(&recordingParticipantRepo{}, &fakePulseRepo{pulse: activePulse()}, &fakeFeed{}, nil, nil)

	_, err := svc.Join(context.Background(), "pulse-1", JoinRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateTogglesCompletionFlag(t *testing.T) {
	repo := &recordingParticipantRepo{stored: &models.Participant{ID: "participant-1", PulseID: "pulse-1", Name: "Ana"}}
	feed := &fakeFeed{}
	svc := NewParticipantService(repo, &fakePulseRepo{pulse: activePulse()}, feed, nil, nil)

	done := true
	participant, err := svc.Update(context.Background(), "participant-1", UpdateRequest{IsCompleted: &done})

	require.NoError(t, err)
	assert.True(t, participant.IsCompleted)
	assert.Equal(t, "Ana", participant.Name)
	require.NotNil(t, repo.updated)
	assert.True(t, repo.updated.IsCompleted)

	events := feed.published()
	require.Len(t, events, 1)
	assert.Equal(t, notify.ActionUpdate, events[0].Action)
}

func TestUpdateRenamesParticipant(t *testing.T) {
	repo := &recordingParticipantRepo{stored: &models.Participant{ID: "participant-1", PulseID: "pulse-1", Name: "Ana"}}
	svc := NewParticipantService(repo, &fakePulseRepo{pulse: activePulse()}, &fakeFeed{}, nil, nil)

	name := "Ana B."
	participant, err := svc.Update(context.Background(), "participant-1", UpdateRequest{Name: &name})

	require.NoError(t, err)
	assert.Equal(t, "Ana B.", participant.Name)
	assert.False(t, participant.IsCompleted)
}
