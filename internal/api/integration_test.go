//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/analysis"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/database"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/identity"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/monitor"
	providermock "github.com/saturnino-fabrica-de-software/sentinela/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/repository"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/service"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	// PostgreSQL with pgvector
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "sentinela_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	connStr := fmt.Sprintf("postgres://test:test@%s:%s/sentinela_test?sslmode=disable", host, port.Port())

	testDB, err = database.NewPool(ctx, database.DefaultPoolConfig(connStr))
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	migrator, err := database.NewMigrator(database.SQLDB(testDB), "sentinela_test")
	if err == nil {
		err = migrator.Up()
	}
	if err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		testDB.Close()
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = migrator.Close()
	testDB.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

type stack struct {
	router  *Router
	manager *monitor.Manager
}

func newStack(t *testing.T, faceCount int) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	source := providermock.New(providermock.WithFaceCount(faceCount))

	analyticsSvc := service.NewAnalyticsService(repository.NewSessionAnalyticsRepository(testDB), nil, m, logger)
	identitySvc := service.NewIdentityService(
		source,
		identity.NewVerifier(source, logger, m),
		repository.NewReferenceRepository(testDB),
		repository.NewIdentityCheckRepository(testDB),
		nil,
		logger,
	)

	manager := monitor.NewManager(source,
		analysis.NewExtractor(analysis.WithLogger(logger), analysis.WithMetrics(m)),
		func(key monitor.Key) monitor.Sink {
			return monitor.IngestSink(analyticsSvc, key, logger)
		},
		monitor.WithManagerInterval(time.Hour),
		monitor.WithManagerLogger(logger),
		monitor.WithManagerMetrics(m),
	)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	router := NewRouter(logger, &Dependencies{
		Analytics: analyticsSvc,
		Identity:  identitySvc,
		Monitors:  manager,
		Metrics:   m,
		Readiness: map[string]handler.ReadinessCheck{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, testDB) },
			"landmark_source": source.Health,
		},
	})
	router.Setup()

	return &stack{router: router, manager: manager}
}

func (s *stack) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.router.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func imageRequest(t *testing.T, method, target string, fields ...string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i, field := range fields {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="frame.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte{0xFF, 0xD8, 0xFF, byte(i)})
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIntegration_Health(t *testing.T) {
	s := newStack(t, 1)

	resp := s.do(t, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest("GET", "/nonexistent", nil))
	assert.Equal(t, 404, resp.StatusCode)
}

func TestIntegration_AnalyticsLifecycle(t *testing.T) {
	s := newStack(t, 1)
	sessionID := fmt.Sprintf("interview-%d", time.Now().UnixNano())
	base := "/v1/sessions/" + sessionID + "/candidates/cand-1"

	events := []string{
		`{"presence":{"detected":true,"face_count":1,"confidence":0.98},"attention":{"looking_away":false,"attention_score":80},"emotion":{"dominant_emotion":"neutral","confidence_indicator":"HIGH"}}`,
		`{"presence":{"detected":false,"face_count":0},"anti_cheat":{"face_count":0,"risk_level":"CRITICAL","alerts":[{"type":"NO_FACE_DETECTED","severity":"CRITICAL","message":"Candidate not visible"}]}}`,
	}
	for _, body := range events {
		req := httptest.NewRequest("POST", base+"/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := s.do(t, req)
		require.Equal(t, 200, resp.StatusCode)
	}

	resp := s.do(t, httptest.NewRequest("GET", base+"/analytics", nil))
	require.Equal(t, 200, resp.StatusCode)

	var report service.AnalyticsReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Len(t, report.Record.PresenceLogs, 2)
	assert.Equal(t, 50.0, report.LiveSummary.PresencePercentage)
	require.NotNil(t, report.Record.AntiCheat)
	assert.Len(t, report.Record.AntiCheat.Incidents, 1)
	assert.Equal(t, domain.RiskCritical, report.Record.AntiCheat.CheatingRiskLevel)

	resp = s.do(t, httptest.NewRequest("POST", base+"/finalize", nil))
	require.Equal(t, 200, resp.StatusCode)

	var finalized domain.SessionAnalytics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&finalized))
	require.NotNil(t, finalized.Summary)
	require.NotNil(t, finalized.FinalizedAt)
	assert.Equal(t, 50.0, finalized.Summary.PresencePercentage)

	resp = s.do(t, httptest.NewRequest("GET", "/v1/sessions/"+sessionID+"/analytics", nil))
	require.Equal(t, 200, resp.StatusCode)

	var list handler.SessionAnalyticsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Candidates, 1)
}

func TestIntegration_AnalyzePersistsReading(t *testing.T) {
	s := newStack(t, 2)
	sessionID := fmt.Sprintf("interview-%d", time.Now().UnixNano())
	base := "/v1/sessions/" + sessionID + "/candidates/cand-2"

	resp := s.do(t, imageRequest(t, "POST", base+"/analyze", "image"))
	require.Equal(t, 200, resp.StatusCode)

	var reading domain.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reading))
	assert.Equal(t, 2, reading.AntiCheat.FaceCount)

	resp = s.do(t, httptest.NewRequest("GET", base+"/analytics", nil))
	require.Equal(t, 200, resp.StatusCode)

	var report service.AnalyticsReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.NotNil(t, report.Record.AntiCheat)
	assert.Equal(t, 1, report.Record.AntiCheat.MultipleFacesDetected)
	assert.Len(t, report.Record.EmotionTimeline, 1)
}

func TestIntegration_IdentityLifecycle(t *testing.T) {
	s := newStack(t, 1)
	candidateID := fmt.Sprintf("cand-%d", time.Now().UnixNano())

	resp := s.do(t, imageRequest(t, "POST", "/v1/sessions/s1/candidates/"+candidateID+"/identity", "image"))
	assert.Equal(t, 404, resp.StatusCode, "verify without enrollment")

	resp = s.do(t, imageRequest(t, "PUT", "/v1/candidates/"+candidateID+"/reference", "image"))
	require.Equal(t, 201, resp.StatusCode)

	resp = s.do(t, imageRequest(t, "POST", "/v1/sessions/s1/candidates/"+candidateID+"/identity", "image"))
	require.Equal(t, 200, resp.StatusCode)

	var result identity.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Verified, "same image must verify against its own reference")

	resp = s.do(t, httptest.NewRequest("GET", "/v1/sessions/s1/candidates/"+candidateID+"/identity", nil))
	require.Equal(t, 200, resp.StatusCode)

	var history handler.IdentityHistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history.Checks, 1)

	resp = s.do(t, httptest.NewRequest("DELETE", "/v1/candidates/"+candidateID+"/reference", nil))
	assert.Equal(t, 204, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest("DELETE", "/v1/candidates/"+candidateID+"/reference", nil))
	assert.Equal(t, 404, resp.StatusCode)
}

func TestIntegration_MetricsEndpoint(t *testing.T) {
	s := newStack(t, 1)

	s.do(t, httptest.NewRequest("GET", "/v1/sessions/any/candidates/none/analytics", nil))

	resp := s.do(t, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sentinela_http_requests_total")
}
