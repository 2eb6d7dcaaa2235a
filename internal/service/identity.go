package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/identity"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/repository"
)

// IdentityService enrolls candidate reference descriptors and verifies live
// frames against them.
type IdentityService struct {
	source   provider.LandmarkSource
	verifier *identity.Verifier
	refs     repository.ReferenceStore
	checks   repository.IdentityCheckStore
	audit    audit.Logger
	logger   *slog.Logger
}

func NewIdentityService(
	source provider.LandmarkSource,
	verifier *identity.Verifier,
	refs repository.ReferenceStore,
	checks repository.IdentityCheckStore,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *IdentityService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{
		source:   source,
		verifier: verifier,
		refs:     refs,
		checks:   checks,
		audit:    auditLogger,
		logger:   logger.With("component", "identity_service"),
	}
}

// Enroll stores the descriptor of the single face in the image as the
// candidate's reference, replacing any previous one.
func (s *IdentityService) Enroll(ctx context.Context, candidateID string, image []byte) (*domain.CandidateReference, error) {
	if candidateID == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("candidate_id is required"))
	}

	ref, err := s.enroll(ctx, candidateID, image)

	event := audit.Event{
		EventType:   audit.EventReferenceEnrolled,
		CandidateID: candidateID,
		Provider:    s.source.Name(),
	}.Outcome(err)
	if err == nil {
		event.Metadata = map[string]string{"dimensions": strconv.Itoa(ref.Dimensions)}
	}
	_ = s.audit.Log(ctx, event)

	return ref, err
}

func (s *IdentityService) enroll(ctx context.Context, candidateID string, image []byte) (*domain.CandidateReference, error) {
	faces, err := s.source.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: detect faces: %w", candidateID, err)
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	if len(faces) > 1 {
		return nil, domain.ErrMultipleFaces
	}

	descriptor, err := s.verifier.Describe(ctx, image)
	switch {
	case errors.Is(err, provider.ErrRecognitionUnsupported):
		return nil, domain.ErrRecognitionUnsupported.WithError(err)
	case errors.Is(err, domain.ErrNoFaceDetected):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("candidate %s: describe face: %w", candidateID, err)
	}

	ref := &domain.CandidateReference{
		CandidateID: candidateID,
		Descriptor:  descriptor,
		Source:      s.source.Name(),
	}
	if err := s.refs.Save(ctx, ref); err != nil {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, err)
	}

	return ref, nil
}

// Verify compares the live frame against the reference image when one is
// given, otherwise against the candidate's enrolled descriptor. Verification
// failures come back as an unverified result; only a missing enrollment or a
// storage failure is an error.
func (s *IdentityService) Verify(ctx context.Context, sessionID, candidateID string, live, reference []byte) (identity.Result, error) {
	if err := validateKey(sessionID, candidateID); err != nil {
		return identity.Result{}, err
	}

	start := time.Now()

	var result identity.Result
	if len(reference) > 0 {
		result = s.verifier.VerifyImages(ctx, live, reference)
	} else {
		ref, err := s.refs.Get(ctx, candidateID)
		if err != nil {
			if errors.Is(err, domain.ErrReferenceNotFound) {
				return identity.Result{}, err
			}
			return identity.Result{}, fmt.Errorf("candidate %s: load reference: %w", candidateID, err)
		}
		result = s.verifier.VerifyDescriptor(ctx, live, ref.Descriptor)
	}

	check := &domain.IdentityCheck{
		SessionID:   sessionID,
		CandidateID: candidateID,
		Verified:    result.Verified,
		MatchScore:  result.MatchScore,
		Distance:    result.Distance,
		Reason:      result.Reason,
		LatencyMs:   time.Since(start).Milliseconds(),
	}

	// The result stands even when the history write fails
	if err := s.checks.Create(ctx, check); err != nil {
		s.logger.WarnContext(ctx, "failed to record identity check",
			slog.String("session_id", sessionID),
			slog.String("candidate_id", candidateID),
			slog.String("error", err.Error()),
		)
	}

	event := audit.Event{
		EventType:   audit.EventIdentityVerified,
		SessionID:   sessionID,
		CandidateID: candidateID,
		Provider:    s.source.Name(),
		Success:     result.Verified,
		Metadata: map[string]string{
			"match_score": strconv.FormatFloat(result.MatchScore, 'f', 4, 64),
		},
	}
	if result.Reason != "" {
		event.Error = result.Reason
	}
	_ = s.audit.Log(ctx, event)

	return result, nil
}

// History lists the identity checks recorded for the candidate in the session.
func (s *IdentityService) History(ctx context.Context, sessionID, candidateID string) ([]domain.IdentityCheck, error) {
	if err := validateKey(sessionID, candidateID); err != nil {
		return nil, err
	}
	checks, err := s.checks.ListBySession(ctx, sessionID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("session %s candidate %s: identity history: %w", sessionID, candidateID, err)
	}
	return checks, nil
}

// DeleteReference erases the candidate's enrolled descriptor (LGPD).
func (s *IdentityService) DeleteReference(ctx context.Context, candidateID string) error {
	if candidateID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("candidate_id is required"))
	}
	if err := s.refs.Delete(ctx, candidateID); err != nil {
		if errors.Is(err, domain.ErrReferenceNotFound) {
			return err
		}
		return fmt.Errorf("candidate %s: delete reference: %w", candidateID, err)
	}

	s.logger.InfoContext(ctx, "reference deleted", slog.String("candidate_id", candidateID))
	return nil
}
