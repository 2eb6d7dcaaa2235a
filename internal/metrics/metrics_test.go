package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncrementFrames(false)
	m.IncrementFrames(true)
	m.IncrementFrames(true)
	m.IncrementAnalysisFailure("attention")
	m.IncrementIngested("presence")
	m.IncrementAlert("MULTIPLE_FACES", "sent")
	m.IncrementIdentityCheck(true)
	m.IncrementIdentityCheck(false)
	m.MonitorStarted()
	m.MonitorStarted()
	m.MonitorStopped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesAnalyzed.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesAnalyzed.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailures.WithLabelValues("attention")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsIngested.WithLabelValues("presence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsDispatched.WithLabelValues("MULTIPLE_FACES", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityChecks.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityChecks.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveMonitors))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncrementIngested("emotion")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EventsIngested.WithLabelValues("emotion")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EventsIngested.WithLabelValues("emotion")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementFrames(true)
		m.IncrementAnalysisFailure("emotion")
		m.ObserveCycle(time.Second)
		m.ObserveSource("detect", time.Second)
		m.MonitorStarted()
		m.MonitorStopped()
		m.IncrementIngested("presence")
		m.IncrementAlert("NO_FACE_DETECTED", "failed")
		m.IncrementIdentityCheck(true)
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/health", "200", 5*time.Millisecond)
	m.ObserveCycle(20 * time.Millisecond)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sentinela_http_requests_total")
	assert.Contains(t, string(body), "sentinela_detection_cycle_duration_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
