package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/alert"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/service"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

// MockAnalyticsService is a mock implementation of AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) SubmitEvent(ctx context.Context, sessionID, candidateID string, event domain.AnalyticsEvent) (*domain.SessionAnalytics, error) {
	args := m.Called(ctx, sessionID, candidateID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionAnalytics), args.Error(1)
}

func (m *MockAnalyticsService) GetAnalytics(ctx context.Context, sessionID, candidateID string) (*service.AnalyticsReport, error) {
	args := m.Called(ctx, sessionID, candidateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalyticsReport), args.Error(1)
}

func (m *MockAnalyticsService) ListSession(ctx context.Context, sessionID string) ([]service.AnalyticsReport, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.AnalyticsReport), args.Error(1)
}

func (m *MockAnalyticsService) Finalize(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error) {
	args := m.Called(ctx, sessionID, candidateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionAnalytics), args.Error(1)
}

type MockAlertDispatcher struct {
	mock.Mock
}

func (m *MockAlertDispatcher) Dispatch(ctx context.Context, sessionID, candidateID string, reading domain.AntiCheatReading) []*alert.Alert {
	args := m.Called(ctx, sessionID, candidateID, reading)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*alert.Alert)
}

type MockLiveFeed struct {
	mock.Mock
}

func (m *MockLiveFeed) Broadcast(sessionID string, eventType ws.EventType, data any) {
	m.Called(sessionID, eventType, data)
}

func analyticsApp(svc AnalyticsService, alerts AlertDispatcher, feed LiveFeed) *AnalyticsHandler {
	return NewAnalyticsHandler(svc, alerts, feed, testLogger())
}

func TestAnalyticsHandler_SubmitEvent(t *testing.T) {
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	record := domain.NewSessionAnalytics("s1", "c1", ts)
	record.ID = uuid.New()

	t.Run("ingests event and dispatches anti-cheat alerts", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		alerts := new(MockAlertDispatcher)
		h := analyticsApp(svc, alerts, nil)

		app := newTestApp()
		app.Post("/sessions/:session_id/candidates/:candidate_id/events", h.SubmitEvent)

		svc.On("SubmitEvent", mock.Anything, "s1", "c1", mock.MatchedBy(func(e domain.AnalyticsEvent) bool {
			return e.AntiCheat != nil && e.AntiCheat.FaceCount == 2 && e.Presence == nil
		})).Return(record, nil)
		alerts.On("Dispatch", mock.Anything, "s1", "c1", mock.MatchedBy(func(r domain.AntiCheatReading) bool {
			return r.MultipleFaces
		})).Return([]*alert.Alert{})

		body := `{"anti_cheat":{"multiple_faces":true,"face_count":2,"risk_level":"HIGH","alerts":[{"type":"MULTIPLE_FACES","severity":"HIGH","message":"2 faces detected"}]}}`
		req := httptest.NewRequest("POST", "/sessions/s1/candidates/c1/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got domain.SessionAnalytics
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, "s1", got.SessionID)

		svc.AssertExpectations(t)
		alerts.AssertExpectations(t)
	})

	t.Run("skips dispatch without anti-cheat reading", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		alerts := new(MockAlertDispatcher)
		h := analyticsApp(svc, alerts, nil)

		app := newTestApp()
		app.Post("/sessions/:session_id/candidates/:candidate_id/events", h.SubmitEvent)

		svc.On("SubmitEvent", mock.Anything, "s1", "c1", mock.Anything).Return(record, nil)

		req := httptest.NewRequest("POST", "/sessions/s1/candidates/c1/events", strings.NewReader(`{"presence":{"detected":true,"face_count":1}}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		alerts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejected reading is not dispatched", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		alerts := new(MockAlertDispatcher)
		h := analyticsApp(svc, alerts, nil)

		app := newTestApp()
		app.Post("/sessions/:session_id/candidates/:candidate_id/events", h.SubmitEvent)

		svc.On("SubmitEvent", mock.Anything, "s1", "c1", mock.Anything).
			Return(nil, domain.ErrValidationFailed.WithError(assert.AnError))

		body := `{"anti_cheat":{"face_count":1,"risk_level":"BOGUS","alerts":[{"type":"MULTIPLE_FACES","severity":"WHATEVER"}]}}`
		resp, err := app.Test(httptest.NewRequest("POST", "/sessions/s1/candidates/c1/events", strings.NewReader(body)))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		alerts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		h := analyticsApp(svc, nil, nil)

		app := newTestApp()
		app.Post("/sessions/:session_id/candidates/:candidate_id/events", h.SubmitEvent)

		req := httptest.NewRequest("POST", "/sessions/s1/candidates/c1/events", strings.NewReader(`{"presence":`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Error.Code)

		svc.AssertNotCalled(t, "SubmitEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty event is rejected by the service", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		h := analyticsApp(svc, nil, nil)

		app := newTestApp()
		app.Post("/sessions/:session_id/candidates/:candidate_id/events", h.SubmitEvent)

		svc.On("SubmitEvent", mock.Anything, "s1", "c1", domain.AnalyticsEvent{}).Return(nil, domain.ErrEmptyEvent)

		req := httptest.NewRequest("POST", "/sessions/s1/candidates/c1/events", strings.NewReader(`{}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		assert.Equal(t, "EMPTY_EVENT", decodeError(t, resp).Error.Code)
	})
}

func TestAnalyticsHandler_Get(t *testing.T) {
	t.Run("returns report", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		h := analyticsApp(svc, nil, nil)
		app := newTestApp()
		app.Get("/sessions/:session_id/candidates/:candidate_id/analytics", h.Get)

		report := &service.AnalyticsReport{
			Record:      domain.NewSessionAnalytics("s1", "c1", time.Now()),
			LiveSummary: domain.Summary{PresencePercentage: 100, AttentionScore: 73},
		}
		svc.On("GetAnalytics", mock.Anything, "s1", "c1").Return(report, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/sessions/s1/candidates/c1/analytics", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got service.AnalyticsReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 100.0, got.LiveSummary.PresencePercentage)
		assert.Equal(t, 73.0, got.LiveSummary.AttentionScore)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockAnalyticsService)
		h := analyticsApp(svc, nil, nil)
		app := newTestApp()
		app.Get("/sessions/:session_id/candidates/:candidate_id/analytics", h.Get)

		svc.On("GetAnalytics", mock.Anything, "s1", "missing").Return(nil, domain.ErrAnalyticsNotFound)

		resp, err := app.Test(httptest.NewRequest("GET", "/sessions/s1/candidates/missing/analytics", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "ANALYTICS_NOT_FOUND", decodeError(t, resp).Error.Code)
	})
}

func TestAnalyticsHandler_List(t *testing.T) {
	svc := new(MockAnalyticsService)
	h := analyticsApp(svc, nil, nil)
	app := newTestApp()
	app.Get("/sessions/:session_id/analytics", h.List)

	svc.On("ListSession", mock.Anything, "empty").Return(nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/sessions/empty/analytics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "empty", got["session_id"])
	assert.Equal(t, []any{}, got["candidates"])
}

func TestAnalyticsHandler_Finalize(t *testing.T) {
	svc := new(MockAnalyticsService)
	feed := new(MockLiveFeed)
	h := analyticsApp(svc, nil, feed)
	app := newTestApp()
	app.Post("/sessions/:session_id/candidates/:candidate_id/finalize", h.Finalize)

	record := domain.NewSessionAnalytics("s1", "c1", time.Now())
	record.Summary = &domain.Summary{PresencePercentage: 50, OverallSuspicionScore: 30}
	svc.On("Finalize", mock.Anything, "s1", "c1").Return(record, nil)
	feed.On("Broadcast", "s1", ws.EventAnalyticsFinalized, mock.Anything).Return()

	resp, err := app.Test(httptest.NewRequest("POST", "/sessions/s1/candidates/c1/finalize", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got domain.SessionAnalytics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.NotNil(t, got.Summary)
	assert.Equal(t, 30.0, got.Summary.OverallSuspicionScore)

	feed.AssertExpectations(t)
}
