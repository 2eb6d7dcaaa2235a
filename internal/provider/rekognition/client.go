package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

const (
	errCodeAccessDenied         = "AccessDeniedException"
	errCodeInvalidParameter     = "InvalidParameterException"
	errCodeInvalidImageFormat   = "InvalidImageFormatException"
	errCodeImageTooLarge        = "ImageTooLargeException"
	errCodeThrottling           = "ThrottlingException"
	errCodeThroughputExceeded   = "ProvisionedThroughputExceededException"
	errCodeUnrecognizedClientID = "UnrecognizedClientException"
)

// RekognitionAPI is the subset of the Rekognition SDK used by the provider
type RekognitionAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	ListCollections(ctx context.Context, params *rekognition.ListCollectionsInput, optFns ...func(*rekognition.Options)) (*rekognition.ListCollectionsOutput, error)
}

// Client wraps the AWS Rekognition client
type Client struct {
	rekognition RekognitionAPI
	config      Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// DetectFaces runs DetectFaces with every facial attribute, which includes
// landmarks and emotions.
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]types.FaceDetail, error) {
	output, err := c.rekognition.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		return nil, parseError(err)
	}
	return output.FaceDetails, nil
}

// Ping performs the cheapest authenticated call available to confirm
// credentials and reachability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rekognition.ListCollections(ctx, &rekognition.ListCollectionsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return parseError(err)
	}
	return nil
}

// parseError maps Rekognition API error codes onto package and domain errors
func parseError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case errCodeAccessDenied, errCodeUnrecognizedClientID:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.ErrorMessage())
	case errCodeInvalidParameter, errCodeInvalidImageFormat, errCodeImageTooLarge:
		return fmt.Errorf("%w: %s", domain.ErrInvalidImage, apiErr.ErrorMessage())
	case errCodeThrottling, errCodeThroughputExceeded:
		return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
	}

	return err
}
