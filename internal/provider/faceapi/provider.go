package faceapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

// Provider implements provider.LandmarkSource on top of a face-api.js sidecar
// (SSD MobileNet detector, 68-point landmark net, expression net, recognition net).
type Provider struct {
	client *Client
}

// NewProvider creates a new face-api provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

func (p *Provider) Name() string {
	return "faceapi"
}

// DetectFaces detects faces in the frame. Faces whose landmark set is not
// 68 points are returned without landmarks.
func (p *Provider) DetectFaces(ctx context.Context, frame []byte) ([]provider.DetectedFace, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(frame)

	resp, err := p.client.Detect(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Faces))
	for _, result := range resp.Faces {
		face := provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      result.Box.X,
				Y:      result.Box.Y,
				Width:  result.Box.Width,
				Height: result.Box.Height,
			},
			Confidence:  result.Score,
			Expressions: toExpressions(result.Expressions),
			Descriptor:  result.Descriptor,
		}

		if lm, err := provider.FromPoints68(toPoints(result.Landmarks)); err == nil {
			face.Landmarks = lm
		}

		faces = append(faces, face)
	}

	return faces, nil
}

// Describe returns the 128-d recognition descriptor of the best face
func (p *Provider) Describe(ctx context.Context, image []byte) ([]float64, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Describe(ctx, imageBase64)
	if err != nil {
		switch statusCode(err) {
		case http.StatusNotImplemented:
			return nil, provider.ErrRecognitionUnsupported
		case http.StatusUnprocessableEntity:
			return nil, domain.ErrNoFaceDetected
		}
		return nil, fmt.Errorf("describe face: %w", err)
	}

	if len(resp.Descriptor) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	return resp.Descriptor, nil
}

// Health checks that the sidecar is up and its models are loaded
func (p *Provider) Health(ctx context.Context) error {
	resp, err := p.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("faceapi health: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("faceapi health: status %q: %w", resp.Status, ErrModelsNotLoaded)
	}
	return nil
}

func toPoints(positions []Position) []provider.Point {
	points := make([]provider.Point, len(positions))
	for i, pos := range positions {
		points[i] = provider.Point{X: pos.X, Y: pos.Y}
	}
	return points
}

func toExpressions(raw map[string]float64) map[domain.Emotion]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[domain.Emotion]float64, len(raw))
	for label, prob := range raw {
		out[domain.Emotion(label)] = prob
	}
	return out
}

// Ensure Provider implements provider.LandmarkSource
var _ provider.LandmarkSource = (*Provider)(nil)
