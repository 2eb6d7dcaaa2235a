package provider

import "errors"

var (
	// ErrInvalidLandmarks indicates a landmark set that does not follow the 68-point layout
	ErrInvalidLandmarks = errors.New("invalid landmark set")

	// ErrUnknownProvider indicates an unsupported PROVIDER_TYPE
	ErrUnknownProvider = errors.New("unknown landmark provider")
)
