package meshlet

import "errors"

// Meshlet generation errors.
var (
	ErrMalformedMesh      = errors.New("malformed mesh")
	ErrDegenerateTriangle = errors.New("degenerate triangle")
	ErrCapacityViolation  = errors.New("meshlet capacity violation")
	ErrInvalidLimits      = errors.New("invalid meshlet limits")
	ErrVerification       = errors.New("meshlet verification failed")
)
