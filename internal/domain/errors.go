package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies
// produced by WithError still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Session analytics errors
	ErrAnalyticsNotFound = &AppError{
		Code:       "ANALYTICS_NOT_FOUND",
		Message:    "No analytics recorded for this session and candidate",
		StatusCode: 404,
	}

	ErrEmptyEvent = &AppError{
		Code:       "EMPTY_EVENT",
		Message:    "Event must carry at least one reading",
		StatusCode: 422,
	}

	// Detection errors
	ErrDetectionUnavailable = &AppError{
		Code:       "DETECTION_UNAVAILABLE",
		Message:    "Face landmark detection is unavailable",
		StatusCode: 503,
	}

	ErrMonitorNotRunning = &AppError{
		Code:       "MONITOR_NOT_RUNNING",
		Message:    "No detection loop is running for this session and candidate",
		StatusCode: 404,
	}

	ErrNoFrameAvailable = &AppError{
		Code:       "NO_FRAME_AVAILABLE",
		Message:    "No frame has been received for this session and candidate",
		StatusCode: 409,
	}

	// Identity errors
	ErrReferenceNotFound = &AppError{
		Code:       "REFERENCE_NOT_FOUND",
		Message:    "No reference descriptor enrolled for this candidate",
		StatusCode: 404,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "Multiple faces detected, please provide image with single face",
		StatusCode: 422,
	}

	ErrRecognitionUnsupported = &AppError{
		Code:       "RECOGNITION_UNSUPPORTED",
		Message:    "The configured landmark source cannot compute face descriptors",
		StatusCode: 501,
	}
)
