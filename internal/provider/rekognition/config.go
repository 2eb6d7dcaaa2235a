package rekognition

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrThrottled is returned when Rekognition rejects a call for exceeding the provisioned rate
	ErrThrottled = errors.New("rekognition request throttled")
)

type Config struct {
	Region string

	// MinConfidence drops detections below it, on a 0-1 scale
	MinConfidence float64
}

func DefaultConfig() Config {
	return Config{
		Region:        "us-east-1",
		MinConfidence: 0.5,
	}
}

func (c Config) validate() error {
	if c.Region == "" {
		return errors.New("rekognition: region is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("rekognition: min confidence %.2f outside [0,1]", c.MinConfidence)
	}
	return nil
}
