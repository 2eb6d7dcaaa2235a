package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/config"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider/faceapi"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider/rekognition"
)

// ProviderType defines supported landmark source types
type ProviderType string

const (
	// ProviderTypeFaceAPI is the face-api.js sidecar (68-point landmarks, expressions, descriptors)
	ProviderTypeFaceAPI ProviderType = "faceapi"
	// ProviderTypeRekognition is AWS Rekognition (landmarks and emotions, no descriptors)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is the deterministic in-process source used in dev and tests
	ProviderTypeMock ProviderType = "mock"
)

// NewLandmarkSource creates a LandmarkSource based on configuration.
// Construction never contacts the backend; callers probe Health before use.
//
// Environment variables:
//   - PROVIDER_TYPE: "faceapi", "rekognition" or "mock" (default: "faceapi")
//   - FACEAPI_URL: face-api sidecar URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
func NewLandmarkSource(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.LandmarkSource, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeFaceAPI, "":
		return createFaceAPIProvider(cfg), nil

	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg, auditLogger)

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("%w: %s (supported: %s, %s, %s)", provider.ErrUnknownProvider,
			cfg.ProviderType, ProviderTypeFaceAPI, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// createRekognitionProvider creates an AWS Rekognition provider instance
func createRekognitionProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.LandmarkSource, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	var opts []rekognition.ProviderOption
	if auditLogger != nil {
		opts = append(opts, rekognition.WithAuditLogger(auditLogger))
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}

	return prov, nil
}

// createFaceAPIProvider creates a face-api provider instance
func createFaceAPIProvider(cfg *config.Config) provider.LandmarkSource {
	faceapiConfig := faceapi.DefaultConfig()
	if cfg.FaceAPIURL != "" {
		faceapiConfig.BaseURL = cfg.FaceAPIURL
	}

	return faceapi.NewProvider(faceapiConfig)
}
