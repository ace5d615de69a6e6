package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrImageTooLarge indicates the encoded frame exceeds the Rekognition size limit
	ErrImageTooLarge = errors.New("frame exceeds rekognition image size limit")
)
