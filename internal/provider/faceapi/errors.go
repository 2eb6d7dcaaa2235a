package faceapi

import (
	"errors"
	"fmt"
)

var (
	ErrFaceAPIUnavailable = errors.New("faceapi service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from faceapi")
	ErrModelsNotLoaded    = errors.New("faceapi models not loaded")
)

// StatusError is returned for non-2xx responses from the sidecar
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("faceapi returned status %d: %s", e.StatusCode, e.Body)
}
