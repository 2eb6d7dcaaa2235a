package mock

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

// descriptorDimension matches the face-api recognition net
const descriptorDimension = 128

// ErrUnhealthy is returned by Health when the provider was built WithUnhealthy
var ErrUnhealthy = errors.New("mock landmark source unhealthy")

// Provider implementa provider.LandmarkSource para testes e desenvolvimento
type Provider struct {
	faceCount   int
	recognition bool
	healthy     bool
}

type Option func(*Provider)

// WithFaceCount makes every frame report n faces
func WithFaceCount(n int) Option {
	return func(p *Provider) {
		p.faceCount = n
	}
}

// WithoutRecognition makes Describe report recognition as unsupported
func WithoutRecognition() Option {
	return func(p *Provider) {
		p.recognition = false
	}
}

// WithUnhealthy makes Health fail
func WithUnhealthy() Option {
	return func(p *Provider) {
		p.healthy = false
	}
}

// New cria uma nova instância do MockProvider
func New(opts ...Option) *Provider {
	p := &Provider{faceCount: 1, recognition: true, healthy: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "mock"
}

// DetectFaces simula detecção: faces frontais com expressão neutra
func (p *Provider) DetectFaces(ctx context.Context, frame []byte) ([]provider.DetectedFace, error) {
	if len(frame) == 0 {
		return nil, domain.ErrInvalidImage
	}

	faces := make([]provider.DetectedFace, 0, p.faceCount)
	for i := 0; i < p.faceCount; i++ {
		lm, err := provider.FromPoints68(FacePoints(float64(i)*200, 0, 0))
		if err != nil {
			return nil, err
		}
		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      220 + float64(i)*200,
				Y:      140,
				Width:  200,
				Height: 220,
			},
			Confidence: 0.99 - float64(i)*0.1,
			Landmarks:  lm,
			Expressions: map[domain.Emotion]float64{
				domain.EmotionNeutral:   0.92,
				domain.EmotionHappy:     0.04,
				domain.EmotionSad:       0.01,
				domain.EmotionAngry:     0.01,
				domain.EmotionFearful:   0.005,
				domain.EmotionDisgusted: 0.005,
				domain.EmotionSurprised: 0.01,
			},
			Descriptor: generateDescriptor(frame),
		})
	}

	return faces, nil
}

// Describe gera descriptor determinístico baseado no hash da imagem
func (p *Provider) Describe(ctx context.Context, image []byte) ([]float64, error) {
	if !p.recognition {
		return nil, provider.ErrRecognitionUnsupported
	}
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}
	if p.faceCount == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	return generateDescriptor(image), nil
}

func (p *Provider) Health(ctx context.Context) error {
	if !p.healthy {
		return ErrUnhealthy
	}
	return nil
}

// FacePoints builds a 68-point face whose nose tip sits noseDX/noseDY pixels
// away from the default frontal position. offsetX shifts the whole face.
// With zero offsets the tip lies 40px straight below the eye midpoint.
func FacePoints(offsetX, noseDX, noseDY float64) []provider.Point {
	pt := func(x, y float64) provider.Point {
		return provider.Point{X: x + offsetX, Y: y}
	}

	points := make([]provider.Point, 0, 68)

	// Jaw 0-16
	for i := 0; i < 17; i++ {
		angle := math.Pi * float64(i) / 16
		points = append(points, pt(307.5-90*math.Cos(angle), 220+110*math.Sin(angle)))
	}
	// Brows 17-26
	for i := 0; i < 10; i++ {
		points = append(points, pt(255+float64(i)*12.5, 180))
	}
	// Nose bridge 27-29, tip 30, base 31-35
	points = append(points,
		pt(307.5, 205), pt(307.5, 215), pt(307.5, 228),
		pt(307.5+noseDX, 240+noseDY),
		pt(292.5, 250), pt(300, 252), pt(307.5, 254), pt(315, 252), pt(322.5, 250),
	)
	// Left eye 36-41
	points = append(points,
		pt(265, 200), pt(272, 194), pt(283, 194), pt(290, 200), pt(283, 206), pt(272, 206),
	)
	// Right eye 42-47
	points = append(points,
		pt(350, 200), pt(357, 194), pt(368, 194), pt(375, 200), pt(368, 206), pt(357, 206),
	)
	// Mouth 48-67
	for i := 0; i < 20; i++ {
		angle := 2 * math.Pi * float64(i) / 20
		points = append(points, pt(307.5+25*math.Cos(angle), 280+8*math.Sin(angle)))
	}

	return points
}

// generateDescriptor gera descriptor determinístico baseado no hash da imagem
func generateDescriptor(image []byte) []float64 {
	hash := sha256.Sum256(image)
	descriptor := make([]float64, descriptorDimension)
	hashLen := len(hash)

	for i := 0; i < descriptorDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		descriptor[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range descriptor {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return descriptor
	}

	for i := range descriptor {
		descriptor[i] /= norm
	}

	return descriptor
}

// Ensure Provider implements provider.LandmarkSource
var _ provider.LandmarkSource = (*Provider)(nil)
