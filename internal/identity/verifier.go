// Package identity compares a live face against a reference descriptor.
// Verification is best-effort and fails closed: every failure becomes an
// unverified Result with a reason, never an error.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

const (
	// DistanceScale is the descriptor distance at which the match score reaches 0
	DistanceScale = 0.6
	// MatchThreshold is the match score a comparison must exceed to verify
	MatchThreshold = 0.6
)

// Reasons reported on unverified results
const (
	ReasonNoFaceLive           = "no face detected in live image"
	ReasonNoFaceReference      = "no face detected in reference image"
	ReasonEmptyDescriptor      = "empty descriptor"
	ReasonLengthMismatch       = "descriptor length mismatch"
	ReasonRecognitionDisabled  = "face recognition not supported by landmark source"
	ReasonBelowThreshold       = "match score below threshold"
	ReasonLiveUnavailable      = "live descriptor unavailable"
	ReasonReferenceUnavailable = "reference descriptor unavailable"
)

type Result struct {
	Verified   bool    `json:"verified"`
	MatchScore float64 `json:"match_score"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason,omitempty"`
}

func rejected(reason string) Result {
	return Result{Verified: false, MatchScore: 0, Reason: reason}
}

// Compare scores two descriptors. matchScore = max(0, 1 - distance/0.6) and
// the pair verifies only when the score is strictly above 0.6.
func Compare(live, reference []float64) Result {
	if len(live) == 0 || len(reference) == 0 {
		return rejected(ReasonEmptyDescriptor)
	}
	if len(live) != len(reference) {
		return rejected(fmt.Sprintf("%s: %d != %d", ReasonLengthMismatch, len(live), len(reference)))
	}

	distance := EuclideanDistance(live, reference)
	score := math.Max(0, 1-distance/DistanceScale)

	result := Result{
		Verified:   score > MatchThreshold,
		MatchScore: score,
		Distance:   distance,
		Similarity: CosineSimilarity(live, reference),
	}
	if !result.Verified {
		result.Reason = ReasonBelowThreshold
	}
	return result
}

// Verifier extracts descriptors through a landmark source and compares them.
type Verifier struct {
	source  provider.LandmarkSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewVerifier(source provider.LandmarkSource, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		source:  source,
		logger:  logger.With("component", "identity"),
		metrics: m,
	}
}

// Describe returns the descriptor of the most confident face in the image.
func (v *Verifier) Describe(ctx context.Context, image []byte) ([]float64, error) {
	return v.source.Describe(ctx, image)
}

// VerifyImages compares the faces found in a live frame and a reference image.
func (v *Verifier) VerifyImages(ctx context.Context, live, reference []byte) Result {
	ref, reason := v.describe(ctx, reference, ReasonNoFaceReference, ReasonReferenceUnavailable)
	if reason != "" {
		return v.record(ctx, rejected(reason))
	}
	return v.VerifyDescriptor(ctx, live, ref)
}

// VerifyDescriptor compares the face in a live frame against a stored descriptor.
func (v *Verifier) VerifyDescriptor(ctx context.Context, live []byte, reference []float64) Result {
	desc, reason := v.describe(ctx, live, ReasonNoFaceLive, ReasonLiveUnavailable)
	if reason != "" {
		return v.record(ctx, rejected(reason))
	}
	return v.record(ctx, Compare(desc, reference))
}

func (v *Verifier) describe(ctx context.Context, image []byte, noFace, unavailable string) ([]float64, string) {
	desc, err := v.source.Describe(ctx, image)
	switch {
	case err == nil:
		return desc, ""
	case errors.Is(err, domain.ErrNoFaceDetected):
		return nil, noFace
	case errors.Is(err, provider.ErrRecognitionUnsupported):
		return nil, ReasonRecognitionDisabled
	default:
		v.logger.WarnContext(ctx, "descriptor extraction failed",
			slog.String("source", v.source.Name()),
			slog.String("error", err.Error()),
		)
		return nil, unavailable
	}
}

func (v *Verifier) record(ctx context.Context, r Result) Result {
	v.metrics.IncrementIdentityCheck(r.Verified)
	v.logger.DebugContext(ctx, "identity compared",
		slog.Bool("verified", r.Verified),
		slog.Float64("match_score", r.MatchScore),
		slog.String("reason", r.Reason),
	)
	return r
}
