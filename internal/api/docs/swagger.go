package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// AnalyticsEventRequest is a partial update; omitted signal classes are skipped
type AnalyticsEventRequest struct {
	Presence  *PresenceDoc  `json:"presence,omitempty"`
	Attention *AttentionDoc `json:"attention,omitempty"`
	Emotion   *EmotionDoc   `json:"emotion,omitempty"`
	AntiCheat *AntiCheatDoc `json:"anti_cheat,omitempty"`
}

type PresenceDoc struct {
	Timestamp  string  `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	Detected   bool    `json:"detected" example:"true"`
	Confidence float64 `json:"confidence" example:"0.97"`
	FaceCount  int     `json:"face_count" example:"1"`
}

type HeadRotationDoc struct {
	Yaw   float64 `json:"yaw" example:"12.5"`
	Pitch float64 `json:"pitch" example:"80.1"`
	Roll  float64 `json:"roll" example:"0"`
}

type AttentionDoc struct {
	Timestamp      string           `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	LookingAway    bool             `json:"looking_away" example:"false"`
	HeadRotation   *HeadRotationDoc `json:"head_rotation"`
	EyeAspectRatio float64          `json:"eye_aspect_ratio" example:"18.97"`
	EyesOpen       bool             `json:"eyes_open" example:"true"`
	AttentionScore float64          `json:"attention_score" example:"73"`
}

type EmotionDoc struct {
	Timestamp            string  `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	DominantEmotion      string  `json:"dominant_emotion" example:"neutral"`
	DominantEmotionScore float64 `json:"dominant_emotion_score" example:"0.91"`
	ConfidenceIndicator  string  `json:"confidence_indicator" example:"HIGH"`
}

type AlertDoc struct {
	Type     string `json:"type" example:"MULTIPLE_FACES"`
	Severity string `json:"severity" example:"HIGH"`
	Message  string `json:"message" example:"2 faces detected"`
}

type AntiCheatDoc struct {
	Timestamp     string     `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	MultipleFaces bool       `json:"multiple_faces" example:"true"`
	FaceCount     int        `json:"face_count" example:"2"`
	Alerts        []AlertDoc `json:"alerts"`
	RiskLevel     string     `json:"risk_level" example:"HIGH"`
}

type ReadingResponse struct {
	Timestamp string       `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	Presence  PresenceDoc  `json:"presence"`
	Attention AttentionDoc `json:"attention"`
	Emotion   EmotionDoc   `json:"emotion"`
	AntiCheat AntiCheatDoc `json:"anti_cheat"`
}

type SummaryDoc struct {
	PresencePercentage    float64 `json:"presence_percentage" example:"95"`
	AttentionScore        float64 `json:"attention_score" example:"71.4"`
	EmotionalConsistency  float64 `json:"emotional_consistency" example:"80"`
	OverallSuspicionScore float64 `json:"overall_suspicion_score" example:"10"`
}

type IncidentDoc struct {
	Timestamp string `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	Type      string `json:"type" example:"NO_FACE_DETECTED"`
	Severity  string `json:"severity" example:"CRITICAL"`
	Message   string `json:"message" example:"Candidate not visible"`
}

type AntiCheatStateDoc struct {
	Incidents                []IncidentDoc `json:"incidents"`
	MultipleFacesDetected    int           `json:"multiple_faces_detected" example:"1"`
	PhonesDetected           int           `json:"phones_detected" example:"0"`
	BackgroundPeopleDetected int           `json:"background_people_detected" example:"0"`
	CheatingRiskLevel        string        `json:"cheating_risk_level" example:"HIGH"`
}

type SessionAnalyticsResponse struct {
	ID              string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID       string             `json:"session_id" example:"interview-42"`
	CandidateID     string             `json:"candidate_id" example:"candidate-7"`
	PresenceLogs    []PresenceDoc      `json:"presence_logs"`
	AttentionLogs   []AttentionDoc     `json:"attention_logs"`
	EmotionTimeline []EmotionDoc       `json:"emotion_timeline"`
	AntiCheat       *AntiCheatStateDoc `json:"anti_cheat,omitempty"`
	Summary         *SummaryDoc        `json:"summary,omitempty"`
	FinalizedAt     string             `json:"finalized_at,omitempty" example:"2026-01-01T11:00:00Z"`
	CreatedAt       string             `json:"created_at" example:"2026-01-01T10:00:00Z"`
	UpdatedAt       string             `json:"updated_at" example:"2026-01-01T10:59:00Z"`
}

type AnalyticsReportResponse struct {
	Record      SessionAnalyticsResponse `json:"record"`
	LiveSummary SummaryDoc               `json:"live_summary"`
}

type SessionAnalyticsListResponse struct {
	SessionID  string                    `json:"session_id" example:"interview-42"`
	Candidates []AnalyticsReportResponse `json:"candidates"`
}

type MonitorStatusResponse struct {
	SessionID    string           `json:"session_id" example:"interview-42"`
	CandidateID  string           `json:"candidate_id" example:"candidate-7"`
	Running      bool             `json:"running" example:"true"`
	Cycles       int64            `json:"cycles" example:"120"`
	Awaiting     int64            `json:"awaiting_frame_cycles" example:"4"`
	StartedAt    string           `json:"started_at" example:"2026-01-01T10:00:00Z"`
	LastFrameAt  string           `json:"last_frame_at,omitempty" example:"2026-01-01T10:02:00Z"`
	LastReading  *ReadingResponse `json:"last_reading,omitempty"`
	LocalSummary SummaryDoc       `json:"local_summary"`
}

type ReferenceResponse struct {
	CandidateID string `json:"candidate_id" example:"candidate-7"`
	Source      string `json:"source" example:"mock"`
	Dimensions  int    `json:"dimensions" example:"128"`
	CreatedAt   string `json:"created_at" example:"2026-01-01T09:00:00Z"`
	UpdatedAt   string `json:"updated_at" example:"2026-01-01T09:00:00Z"`
}

type IdentityResultResponse struct {
	Verified   bool    `json:"verified" example:"true"`
	MatchScore float64 `json:"match_score" example:"0.82"`
	Distance   float64 `json:"distance" example:"0.11"`
	Similarity float64 `json:"similarity" example:"0.97"`
	Reason     string  `json:"reason,omitempty" example:""`
}

type IdentityCheckDoc struct {
	ID          string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID   string  `json:"session_id" example:"interview-42"`
	CandidateID string  `json:"candidate_id" example:"candidate-7"`
	Verified    bool    `json:"verified" example:"true"`
	MatchScore  float64 `json:"match_score" example:"0.82"`
	Distance    float64 `json:"distance" example:"0.11"`
	Reason      string  `json:"reason,omitempty" example:""`
	LatencyMs   int64   `json:"latency_ms" example:"85"`
	CreatedAt   string  `json:"created_at" example:"2026-01-01T10:00:00Z"`
}

type IdentityHistoryResponse struct {
	SessionID   string             `json:"session_id" example:"interview-42"`
	CandidateID string             `json:"candidate_id" example:"candidate-7"`
	Checks      []IdentityCheckDoc `json:"checks"`
}

func internalError() response.Response {
	return response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Sentinela Proctoring API",
		Version:     "v1.0.0",
		Description: "Interview proctoring signals: presence, attention, emotion and anti-cheat analytics per candidate session",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Analytics

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/events",
			endpoint.WithTags("Analytics"),
			endpoint.WithSummary("Submit an analytics event"),
			endpoint.WithDescription("Appends the provided signal readings to the candidate's session record, creating it on first use. Anti-cheat alerts become incidents. Body: AnalyticsEventRequest."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionAnalyticsResponse{}, "200", "Event ingested"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Malformed JSON body"),
				response.New(ErrorResponse{Code: "EMPTY_EVENT", Message: "Event carries no signal readings"}, "422", "Unprocessable Entity"),
				internalError(),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{session_id}/candidates/{candidate_id}/analytics",
			endpoint.WithTags("Analytics"),
			endpoint.WithSummary("Get candidate analytics"),
			endpoint.WithDescription("Returns the stored record with a summary computed from its current logs"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalyticsReportResponse{}, "200", "Analytics retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ANALYTICS_NOT_FOUND", Message: "No analytics recorded for this session and candidate"}, "404", "Not Found"),
				internalError(),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{session_id}/analytics",
			endpoint.WithTags("Analytics"),
			endpoint.WithSummary("List session analytics"),
			endpoint.WithDescription("Returns the analytics of every candidate recorded in the session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionAnalyticsListResponse{}, "200", "Analytics retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				internalError(),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/finalize",
			endpoint.WithTags("Analytics"),
			endpoint.WithSummary("Finalize candidate analytics"),
			endpoint.WithDescription("Computes the summary from the stored logs and persists it on the record. Calling it again overwrites the snapshot."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionAnalyticsResponse{}, "200", "Analytics finalized"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ANALYTICS_NOT_FOUND", Message: "No analytics recorded for this session and candidate"}, "404", "Not Found"),
				internalError(),
			}),
		),

		// Monitor

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/monitor/start",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Start the detection loop"),
			endpoint.WithDescription("Starts periodic analysis of pushed frames. Starting a running monitor is a no-op."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MonitorStatusResponse{}, "200", "Monitor running"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "DETECTION_UNAVAILABLE", Message: "Landmark source is not available"}, "503", "Service Unavailable"),
				internalError(),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/monitor/stop",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Stop the detection loop"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MonitorStatusResponse{}, "200", "Monitor stopped"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "MONITOR_NOT_RUNNING", Message: "No detection loop is running for this session and candidate"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{session_id}/candidates/{candidate_id}/monitor",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Get detection loop status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MonitorStatusResponse{}, "200", "Monitor status"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "MONITOR_NOT_RUNNING", Message: "No detection loop is running for this session and candidate"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/frames",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Push a video frame"),
			endpoint.WithDescription("Replaces the latest frame of a running monitor. Accepts a multipart 'image' field or a raw image/jpeg, image/png or image/webp body."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data"), mime.MIME("image/jpeg"), mime.MIME("image/png"), mime.MIME("image/webp")}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "202", "Frame accepted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "MONITOR_NOT_RUNNING", Message: "No detection loop is running for this session and candidate"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/analyze",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Analyze a single frame"),
			endpoint.WithDescription("Runs one detection cycle on the uploaded image and ingests the reading into the candidate's analytics"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReadingResponse{}, "200", "Frame analyzed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "DETECTION_UNAVAILABLE", Message: "Landmark source is not available"}, "503", "Service Unavailable"),
			}),
		),

		// Identity

		endpoint.New(
			endpoint.PUT,
			"/candidates/{candidate_id}/reference",
			endpoint.WithTags("Identity"),
			endpoint.WithSummary("Enroll a reference face"),
			endpoint.WithDescription("Stores the face descriptor of the uploaded 'image'. The image must contain exactly one face. Re-enrolling replaces the reference."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReferenceResponse{}, "201", "Reference enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MULTIPLE_FACES", Message: "Multiple faces detected"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RECOGNITION_UNSUPPORTED", Message: "Landmark source does not produce face descriptors"}, "501", "Not Implemented"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/candidates/{candidate_id}/reference",
			endpoint.WithTags("Identity"),
			endpoint.WithSummary("Delete a reference face"),
			endpoint.WithDescription("Removes the candidate's biometric reference (LGPD)"),
			endpoint.WithParams(
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Reference deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "REFERENCE_NOT_FOUND", Message: "No reference face enrolled for this candidate"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/candidates/{candidate_id}/identity",
			endpoint.WithTags("Identity"),
			endpoint.WithSummary("Verify candidate identity"),
			endpoint.WithDescription("Compares the live 'image' against the optional 'reference' image, or against the enrolled reference when omitted"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResultResponse{}, "200", "Verification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "REFERENCE_NOT_FOUND", Message: "No reference face enrolled for this candidate"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{session_id}/candidates/{candidate_id}/identity",
			endpoint.WithTags("Identity"),
			endpoint.WithSummary("List identity checks"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Interview session identifier")),
				parameter.StrParam("candidate_id", parameter.Path, parameter.WithDescription("Candidate identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityHistoryResponse{}, "200", "Identity checks"),
			}),
			endpoint.WithErrors([]response.Response{
				internalError(),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
