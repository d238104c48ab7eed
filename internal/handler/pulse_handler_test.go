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

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/service"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

type fakePulseSrv struct {
	pulse *models.Pulse
	err   error

	lastToken string
	lastKeys  []slot.Key
	reopened  bool
}

func (f *fakePulseSrv) Create(_ context.Context, _ service.CreatePulseRequest) (*service.CreatePulseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.CreatePulseResult{Pulse: f.pulse, AccessToken: "token-1"}, nil
}

func (f *fakePulseSrv) Get(_ context.Context, _ string) (*models.Pulse, error) {
	return f.pulse, f.err
}

func (f *fakePulseSrv) List(_ context.Context, ids []string, page, pageSize int) ([]models.Pulse, *models.Pagination, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.Pulse{*f.pulse}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(ids)}, nil
}

func (f *fakePulseSrv) Finalize(_ context.Context, _ string, token string, keys []slot.Key) (*models.Pulse, error) {
	f.lastToken = token
	f.lastKeys = keys
	if f.err != nil {
		return nil, f.err
	}
	return f.pulse, nil
}

func (f *fakePulseSrv) Reopen(_ context.Context, _ string, token string) (*models.Pulse, error) {
	f.lastToken = token
	f.reopened = true
	if f.err != nil {
		return nil, f.err
	}
	return f.pulse, nil
}

func testPulse() *models.Pulse {
	return &models.Pulse{
		ID:       "pulse-1",
		Title:    "Team Sync",
		Mode:     slot.ModeTimes,
		ViewType: slot.View7Day,
		Status:   models.StatusActive,
	}
}

func TestPulseHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPulseHandler(&fakePulseSrv{pulse: testPulse()})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/pulses", strings.NewReader("{not json"))

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPulseHandlerGetSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPulseHandler(&fakePulseSrv{pulse: testPulse()})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pulses/pulse-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var pulse models.Pulse
	require.NoError(t, json.Unmarshal(envelope.Data, &pulse))
	assert.Equal(t, "pulse-1", pulse.ID)
}

func TestPulseHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPulseHandler(&fakePulseSrv{err: appErrors.Clone(appErrors.ErrNotFound, "pulse not found or invalid link")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pulses/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, envelope.Error.Code)
}

func TestPulseHandlerFinalizePassesHeaderToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePulseSrv{pulse: testPulse()}
	h := NewPulseHandler(srv)

	body := `{"selection":[{"year":2026,"month":3,"day":9,"hour":14},{"year":2026,"month":3,"day":9,"hour":9}]}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/pulses/pulse-1/finalize", strings.NewReader(body))
	c.Request.Header.Set("X-Organizer-Token", "token-1")
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Finalize(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token-1", srv.lastToken)
	require.Len(t, srv.lastKeys, 2)
	assert.Equal(t, slot.Key{Year: 2026, Month: time.March, Day: 9, Hour: 14}, srv.lastKeys[0])
	assert.Equal(t, slot.Key{Year: 2026, Month: time.March, Day: 9, Hour: 9}, srv.lastKeys[1])
}

func TestPulseHandlerFinalizeFallsBackToQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePulseSrv{pulse: testPulse()}
	h := NewPulseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/pulses/pulse-1/finalize?organizer_token=token-2", strings.NewReader(`{"selection":[]}`))
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Finalize(c)

	assert.Equal(t, "token-2", srv.lastToken)
}

func TestPulseHandlerReopenForwardsError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePulseSrv{err: appErrors.Clone(appErrors.ErrConflict, "pulse is not confirmed")}
	h := NewPulseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/pulses/pulse-1/reopen", nil)
	c.Params = gin.Params{{Key: "id", Value: "pulse-1"}}

	h.Reopen(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, srv.reopened)
}

func TestPulseHandlerListParsesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePulseSrv{pulse: testPulse()}
	h := NewPulseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pulses?ids=a,%20b,,c", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSplitIDs(t *testing.T) {
	assert.Nil(t, splitIDs(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitIDs("a, b,,c"))
}
