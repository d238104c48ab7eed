package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type fakePulseRepo struct {
	pulse *models.Pulse

	created       *models.Pulse
	finalizedSel  models.IntervalList
	finalizedSpan [2]time.Time
	finalizeCalls int
	reopenCalls   int
}

func (f *fakePulseRepo) Create(_ context.Context, pulse *models.Pulse) error {
	pulse.ID = "pulse-1"
	pulse.OrganizerToken = "token-1"
	f.created = pulse
	return nil
}

func (f *fakePulseRepo) GetByID(_ context.Context, _ string) (*models.Pulse, error) {
	clone := *f.pulse
	return &clone, nil
}

func (f *fakePulseRepo) ListByIDs(_ context.Context, ids []string, _, _ int) ([]models.Pulse, int, error) {
	return []models.Pulse{*f.pulse}, 1, nil
}

func (f *fakePulseRepo) Finalize(_ context.Context, _ string, selection models.IntervalList, start, end time.Time) error {
	f.finalizeCalls++
	f.finalizedSel = selection
	f.finalizedSpan = [2]time.Time{start, end}
	return nil
}

func (f *fakePulseRepo) Reopen(_ context.Context, _ string) error {
	f.reopenCalls++
	return nil
}

type fakeParticipantRepo struct {
	created []*models.Participant
}

func (f *fakeParticipantRepo) Create(_ context.Context, p *models.Participant) error {
	p.ID = "participant-1"
	f.created = append(f.created, p)
	return nil
}

func (f *fakeParticipantRepo) GetByID(_ context.Context, _ string) (*models.Participant, error) {
	return &models.Participant{ID: "participant-1", PulseID: "pulse-1", Name: "Ana"}, nil
}

func (f *fakeParticipantRepo) ListByPulse(_ context.Context, _ string) ([]models.Participant, error) {
	return nil, nil
}

func (f *fakeParticipantRepo) Update(_ context.Context, _ *models.Participant) error {
	return nil
}

type fakeFeed struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeFeed) Publish(_ context.Context, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeFeed) published() []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Event, len(f.events))
	copy(out, f.events)
	return out
}

type fakeNotifier struct {
	triggered []string
}

func (f *fakeNotifier) Trigger(pulseID string) {
	f.triggered = append(f.triggered, pulseID)
}

type fakeMarkRepo struct {
	created []*models.AvailabilityMark
}

func (f *fakeMarkRepo) Create(_ context.Context, mark *models.AvailabilityMark) error {
	f.created = append(f.created, mark)
	return nil
}

func (f *fakeMarkRepo) Delete(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeMarkRepo) ListByPulse(_ context.Context, _ string) ([]models.MarkRow, error) {
	return nil, nil
}

func activePulse() *models.Pulse {
	return &models.Pulse{
		ID:             "pulse-1",
		Title:          "Team Sync",
		Mode:           slot.ModeTimes,
		ViewType:       slot.View7Day,
		Timezone:       "UTC",
		Status:         models.StatusActive,
		OrganizerToken: "token-1",
	}
}

func newTestPulseService(repo *fakePulseRepo, notifier *fakeNotifier) (*PulseService, *fakeFeed) {
	feed := &fakeFeed{}
	participants := &fakeParticipantRepo{}
	marks := &fakeMarkRepo{}
	availability := NewAvailabilityService(marks, repo, feed, nil, nil)
	return NewPulseService(repo, participants, availability, feed, notifier, nil, nil), feed
}

func TestCreatePulseWithOrganizerAndSelection(t *testing.T) {
	repo := &fakePulseRepo{}
	svc, _ := newTestPulseService(repo, nil)
	repo.pulse = activePulse()

	result, err := svc.Create(context.Background(), CreatePulseRequest{
		Title:         "Team Sync",
		Mode:          "times",
		ViewType:      "7-day",
		StartDate:     time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		Timezone:      "UTC",
		OrganizerName: "Ana",
		Selection: []slot.Key{
			{Year: 2026, Month: time.March, Day: 9, Hour: 14},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "token-1", result.AccessToken)
	require.NotNil(t, result.Organizer)
	assert.True(t, result.Organizer.IsOrganizer)
	assert.Equal(t, models.StatusActive, result.Pulse.Status)
}

func TestCreatePulseRejectsUnknownTimezone(t *testing.T) {
	svc, _ := newTestPulseService(&fakePulseRepo{}, nil)

	_, err := svc.Create(context.Background(), CreatePulseRequest{
		Mode:      "times",
		ViewType:  "7-day",
		StartDate: time.Now(),
		Timezone:  "Mars/Olympus_Mons",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePulseRejectsBadMode(t *testing.T) {
	svc, _ := newTestPulseService(&fakePulseRepo{}, nil)

	_, err := svc.Create(context.Background(), CreatePulseRequest{
		Mode:      "weeks",
		ViewType:  "7-day",
		StartDate: time.Now(),
	})

	require.Error(t, err)
}

func TestFinalizeStoresSelectionInInsertionOrder(t *testing.T) {
	repo := &fakePulseRepo{pulse: activePulse()}
	notifier := &fakeNotifier{}
	svc, feed := newTestPulseService(repo, notifier)

	keys := []slot.Key{
		{Year: 2026, Month: time.March, Day: 9, Hour: 16},
		{Year: 2026, Month: time.March, Day: 9, Hour: 9},
		{Year: 2026, Month: time.March, Day: 10, Hour: 11},
	}
	pulse, err := svc.Finalize(context.Background(), "pulse-1", "token-1", keys)

	require.NoError(t, err)
	require.Len(t, repo.finalizedSel, 3)
	// Stored in the order the organizer picked, not chronological.
	assert.Equal(t, 16, repo.finalizedSel[0].Start.Hour())
	assert.Equal(t, 9, repo.finalizedSel[1].Start.Hour())
	assert.Equal(t, 11, repo.finalizedSel[2].Start.Hour())

	// Legacy single-slot mirror is the first pick.
	assert.Equal(t, repo.finalizedSel[0].Start, repo.finalizedSpan[0])
	assert.Equal(t, repo.finalizedSel[0].End, repo.finalizedSpan[1])

	assert.Equal(t, models.StatusConfirmed, pulse.Status)
	require.NotNil(t, pulse.FinalizedStart)
	assert.Equal(t, repo.finalizedSel[0].Start, *pulse.FinalizedStart)

	assert.Equal(t, []string{"pulse-1"}, notifier.triggered)
	events := feed.published()
	require.Len(t, events, 1)
	assert.Equal(t, notify.TablePulses, events[0].Table)
}

func TestFinalizeRejectsWrongToken(t *testing.T) {
	repo := &fakePulseRepo{pulse: activePulse()}
	svc, _ := newTestPulseService(repo, nil)

	_, err := svc.Finalize(context.Background(), "pulse-1", "stolen", []slot.Key{{Year: 2026, Month: time.March, Day: 9}})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.finalizeCalls)
}

func TestFinalizeRejectsEmptySelection(t *testing.T) {
	repo := &fakePulseRepo{pulse: activePulse()}
	svc, _ := newTestPulseService(repo, nil)

	_, err := svc.Finalize(context.Background(), "pulse-1", "token-1", nil)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestFinalizeRejectsConfirmedPulse(t *testing.T) {
	pulse := activePulse()
	pulse.Status = models.StatusConfirmed
	repo := &fakePulseRepo{pulse: pulse}
	notifier := &fakeNotifier{}
	svc, _ := newTestPulseService(repo, notifier)

	_, err := svc.Finalize(context.Background(), "pulse-1", "token-1", []slot.Key{{Year: 2026, Month: time.March, Day: 9}})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.triggered)
}

func TestReopenRevertsConfirmedPulse(t *testing.T) {
	pulse := activePulse()
	pulse.Status = models.StatusConfirmed
	now := time.Now()
	pulse.FinalizedStart = &now
	repo := &fakePulseRepo{pulse: pulse}
	svc, feed := newTestPulseService(repo, nil)

	reopened, err := svc.Reopen(context.Background(), "pulse-1", "token-1")

	require.NoError(t, err)
	assert.Equal(t, 1, repo.reopenCalls)
	assert.Equal(t, models.StatusActive, reopened.Status)
	assert.Nil(t, reopened.FinalizedStart)
	assert.Nil(t, reopened.FinalizedSelection)
	require.Len(t, feed.published(), 1)
}

func TestReopenRejectsActivePulse(t *testing.T) {
	repo := &fakePulseRepo{pulse: activePulse()}
	svc, _ := newTestPulseService(repo, nil)

	_, err := svc.Reopen(context.Background(), "pulse-1", "token-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestListWithoutIDsReturnsEmpty(t *testing.T) {
	svc, _ := newTestPulseService(&fakePulseRepo{pulse: activePulse()}, nil)

	pulses, pagination, err := svc.List(context.Background(), nil, 1, 50)

	require.NoError(t, err)
	assert.Empty(t, pulses)
	require.NotNil(t, pagination)
	assert.Zero(t, pagination.TotalCount)
}
