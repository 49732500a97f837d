package services

import "errors"

// Standard service errors
var (
	ErrRuntimeInvalid      = errors.New("extension runtime no longer valid")
	ErrProviderUnavailable = errors.New("AI provider not available")
	ErrInvalidInput        = errors.New("invalid input provided")
	ErrNoContent           = errors.New("no message content")
	ErrTimeout             = errors.New("operation timed out")
)

// IsPermanentError determines if an error is permanent and should not be retried
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrRuntimeInvalid) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNoContent)
}
