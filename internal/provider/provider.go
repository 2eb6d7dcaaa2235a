package provider

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// ErrRecognitionUnsupported is returned by Describe when the source has no recognition model.
var ErrRecognitionUnsupported = errors.New("face recognition not supported by landmark source")

// LandmarkSource detects faces with landmarks and expressions in a frame.
type LandmarkSource interface {
	// DetectFaces returns every face found in the frame. An empty slice is not an error.
	DetectFaces(ctx context.Context, frame []byte) ([]DetectedFace, error)

	// Describe returns the recognition descriptor of the most confident face in the image.
	// Returns ErrRecognitionUnsupported when the source cannot compute descriptors
	// and domain.ErrNoFaceDetected when the image has no face.
	Describe(ctx context.Context, image []byte) ([]float64, error)

	// Health reports whether the underlying model is loaded and reachable.
	Health(ctx context.Context) error

	// Name identifies the backend in logs and audit events.
	Name() string
}

// DetectedFace represents a detected face in the frame
type DetectedFace struct {
	BoundingBox BoundingBox                `json:"bounding_box"`
	Confidence  float64                    `json:"confidence"`
	Landmarks   *Landmarks                 `json:"landmarks,omitempty"`
	Expressions map[domain.Emotion]float64 `json:"expressions,omitempty"`
	Descriptor  []float64                  `json:"descriptor,omitempty"`
}

// BoundingBox represents the face area in the frame
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Primary returns the most confident face, or nil for an empty slice.
func Primary(faces []DetectedFace) *DetectedFace {
	var best *DetectedFace
	for i := range faces {
		if best == nil || faces[i].Confidence > best.Confidence {
			best = &faces[i]
		}
	}
	return best
}
