package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Rekognition reports more emotions than the face-api label set. CONFUSED
// and UNKNOWN have no counterpart and are dropped.
var emotionNames = map[types.EmotionName]domain.Emotion{
	types.EmotionNameCalm:      domain.EmotionNeutral,
	types.EmotionNameHappy:     domain.EmotionHappy,
	types.EmotionNameSad:       domain.EmotionSad,
	types.EmotionNameAngry:     domain.EmotionAngry,
	types.EmotionNameFear:      domain.EmotionFearful,
	types.EmotionNameDisgusted: domain.EmotionDisgusted,
	types.EmotionNameSurprised: domain.EmotionSurprised,
}

// Provider implements provider.LandmarkSource using AWS Rekognition DetectFaces.
// Rekognition has no descriptor API, so Describe always reports recognition
// as unsupported.
type Provider struct {
	client      *Client
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

// Ensure Provider implements provider.LandmarkSource interface at compile time
var _ provider.LandmarkSource = (*Provider)(nil)

// NewProvider creates a new Rekognition provider
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	return newProvider(client, opts...), nil
}

func newProvider(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "rekognition"
}

// auditFailure records a rejected detection. Successful detections run
// every cycle and are not audited.
func (p *Provider) auditFailure(ctx context.Context, frame []byte, err error) {
	if p.auditLogger == nil {
		return
	}
	event := audit.Event{
		EventType: audit.EventFacesDetected,
		Provider:  p.Name(),
		Metadata:  map[string]string{"image_size": strconv.Itoa(len(frame))},
	}.Outcome(err)
	_ = p.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return domain.ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", domain.ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", domain.ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectFaces detects faces in a frame. Landmarks and bounding boxes are
// converted from Rekognition's frame ratios to pixels so that head pose
// angles are not skewed by the aspect ratio. Returns an empty slice if no
// faces are detected (not an error).
func (p *Provider) DetectFaces(ctx context.Context, frame []byte) ([]provider.DetectedFace, error) {
	if err := validateImage(frame); err != nil {
		p.auditFailure(ctx, frame, err)
		return nil, err
	}

	details, err := p.client.DetectFaces(ctx, frame)
	if err != nil {
		p.auditFailure(ctx, frame, err)
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	width, height := frameSize(frame)

	faces := make([]provider.DetectedFace, 0, len(details))
	for _, detail := range details {
		confidence := float64(aws.ToFloat32(detail.Confidence)) / 100
		if confidence < p.client.config.MinConfidence {
			continue
		}

		face := provider.DetectedFace{
			Confidence:  confidence,
			Landmarks:   toLandmarks(detail.Landmarks, width, height),
			Expressions: toExpressions(detail.Emotions),
		}
		if box := detail.BoundingBox; box != nil {
			face.BoundingBox = provider.BoundingBox{
				X:      float64(aws.ToFloat32(box.Left)) * width,
				Y:      float64(aws.ToFloat32(box.Top)) * height,
				Width:  float64(aws.ToFloat32(box.Width)) * width,
				Height: float64(aws.ToFloat32(box.Height)) * height,
			}
		}
		faces = append(faces, face)
	}

	return faces, nil
}

// Describe is not available on Rekognition without a face collection
func (p *Provider) Describe(ctx context.Context, image []byte) ([]float64, error) {
	return nil, provider.ErrRecognitionUnsupported
}

// Health checks credentials and reachability of the Rekognition endpoint
func (p *Provider) Health(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("rekognition health: %w", err)
	}
	return nil
}

// frameSize returns the decoded frame dimensions, or 1x1 when the format is
// unknown so that ratios pass through unscaled.
func frameSize(frame []byte) (float64, float64) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return 1, 1
	}
	return float64(cfg.Width), float64(cfg.Height)
}

// toLandmarks maps Rekognition's named landmarks onto the eye and nose
// regions. Rekognition names eyes from the subject's point of view, so eyes
// are assigned by image position instead. Returns nil when any required
// point is missing.
func toLandmarks(raw []types.Landmark, width, height float64) *provider.Landmarks {
	named := make(map[types.LandmarkType]provider.Point, len(raw))
	for _, lm := range raw {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		named[lm.Type] = provider.Point{
			X: float64(*lm.X) * width,
			Y: float64(*lm.Y) * height,
		}
	}

	first, ok := eyeFrom(named,
		types.LandmarkTypeLeftEyeLeft, types.LandmarkTypeLeftEyeRight,
		types.LandmarkTypeLeftEyeUp, types.LandmarkTypeLeftEyeDown)
	if !ok {
		return nil
	}
	second, ok := eyeFrom(named,
		types.LandmarkTypeRightEyeLeft, types.LandmarkTypeRightEyeRight,
		types.LandmarkTypeRightEyeUp, types.LandmarkTypeRightEyeDown)
	if !ok {
		return nil
	}
	tip, ok := named[types.LandmarkTypeNose]
	if !ok {
		return nil
	}
	noseLeft, okLeft := named[types.LandmarkTypeNoseLeft]
	noseRight, okRight := named[types.LandmarkTypeNoseRight]
	if !okLeft || !okRight {
		return nil
	}

	if second.LeftCorner.X < first.LeftCorner.X {
		first, second = second, first
	}

	lm := &provider.Landmarks{LeftEye: first, RightEye: second}

	// Bridge runs from between the eyes down to the tip
	top := first.RightCorner.Midpoint(second.LeftCorner)
	for i := range lm.Nose.Bridge {
		t := float64(i) / float64(len(lm.Nose.Bridge))
		lm.Nose.Bridge[i] = provider.Point{
			X: top.X + (tip.X-top.X)*t,
			Y: top.Y + (tip.Y-top.Y)*t,
		}
	}
	lm.Nose.Tip = tip

	if noseRight.X < noseLeft.X {
		noseLeft, noseRight = noseRight, noseLeft
	}
	center := noseLeft.Midpoint(noseRight)
	lm.Nose.Base = [5]provider.Point{
		noseLeft,
		noseLeft.Midpoint(center),
		center,
		center.Midpoint(noseRight),
		noseRight,
	}

	return lm
}

// eyeFrom builds an eye contour from Rekognition's four eye points. The
// single upper and lower points fill both upper and lower slots.
func eyeFrom(named map[types.LandmarkType]provider.Point, left, right, up, down types.LandmarkType) (provider.EyeLandmarks, bool) {
	pts := make([]provider.Point, 0, 4)
	for _, t := range []types.LandmarkType{left, right, up, down} {
		p, ok := named[t]
		if !ok {
			return provider.EyeLandmarks{}, false
		}
		pts = append(pts, p)
	}

	corners := []provider.Point{pts[0], pts[1]}
	sort.Slice(corners, func(i, j int) bool { return corners[i].X < corners[j].X })

	return provider.EyeLandmarks{
		LeftCorner:  corners[0],
		UpperLeft:   pts[2],
		UpperRight:  pts[2],
		RightCorner: corners[1],
		LowerRight:  pts[3],
		LowerLeft:   pts[3],
	}, true
}

// toExpressions converts Rekognition emotion confidences (0-100) to
// probabilities (0-1).
func toExpressions(emotions []types.Emotion) map[domain.Emotion]float64 {
	if len(emotions) == 0 {
		return nil
	}
	out := make(map[domain.Emotion]float64, len(emotionNames))
	for _, e := range emotions {
		label, ok := emotionNames[e.Type]
		if !ok {
			continue
		}
		out[label] = float64(aws.ToFloat32(e.Confidence)) / 100
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
