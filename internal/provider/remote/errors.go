package remote

import "errors"

var (
	ErrInferenceUnavailable = errors.New("inference service unavailable")
	ErrInvalidResponse      = errors.New("invalid response from inference service")
	ErrNoDescriptor         = errors.New("inference service returned face without descriptor")
)
