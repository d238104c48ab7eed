package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedrp9/pulse-map/internal/dto"
	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
)

type fakeAvailabilitySrv struct {
	added   []slot.Key
	removed []slot.Key
	rows    []models.MarkRow
	view    *dto.HeatmapView

	lastParticipant string
	lastViewer      string
}

func (f *fakeAvailabilitySrv) Add(_ context.Context, _, participantID string, key slot.Key) error {
	f.lastParticipant = participantID
	f.added = append(f.added, key)
	return nil
}

func (f *fakeAvailabilitySrv) Remove(_ context.Context, _, participantID string, key slot.Key) error {
	f.lastParticipant = participantID
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeAvailabilitySrv) List(_ context.Context, _ string) ([]models.MarkRow, error) {
	return f.rows, nil
}

func (f *fakeAvailabilitySrv) Heatmap(_ context.Context, _, viewerID string) (*dto.HeatmapView, error) {
	f.lastViewer = viewerID
	return f.view, nil
}

func TestAvailabilityHandlerAdd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAvailabilitySrv{}
	h := NewAvailabilityHandler(srv)

	body := `{"participant_id":"participant-1","slot":{"year":2026,"month":3,"day":9,"hour":14}}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/pulses/pulse-1/availability", strings.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Add(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "participant-1", srv.lastParticipant)
	require.Len(t, srv.added, 1)
	assert.Equal(t, slot.Key{Year: 2026, Month: time.March, Day: 9, Hour: 14}, srv.added[0])
}

func TestAvailabilityHandlerAddRequiresParticipant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAvailabilityHandler(&fakeAvailabilitySrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/pulses/pulse-1/availability", strings.NewReader(`{"slot":{"year":2026,"month":3,"day":9}}`))
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Add(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityHandlerRemove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAvailabilitySrv{}
	h := NewAvailabilityHandler(srv)

	body := `{"participant_id":"participant-1","slot":{"year":2026,"month":3,"day":9,"hour":14}}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/pulses/pulse-1/availability", strings.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Remove(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, srv.removed, 1)
}

func TestAvailabilityHandlerListRawRows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAvailabilitySrv{rows: []models.MarkRow{{ParticipantName: "Ana"}}}
	h := NewAvailabilityHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pulses/pulse-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var rows []models.MarkRow
	require.NoError(t, json.Unmarshal(envelope.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0].ParticipantName)
}

func TestAvailabilityHandlerHeatmapView(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAvailabilitySrv{view: &dto.HeatmapView{
		PulseID:  "pulse-1",
		Status:   models.StatusActive,
		MaxCount: 2,
		Slots: []dto.HeatmapSlot{
			{Key: slot.Key{Year: 2026, Month: time.March, Day: 9, Hour: 14}, Count: 2, Tier: "high", Mine: true},
		},
	}}
	h := NewAvailabilityHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pulses/pulse-1/availability?view=heatmap&participant_id=participant-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "participant-1", srv.lastViewer)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var view dto.HeatmapView
	require.NoError(t, json.Unmarshal(envelope.Data, &view))
	require.Len(t, view.Slots, 1)
	assert.True(t, view.Slots[0].Mine)
	assert.Equal(t, 2, view.MaxCount)
}
