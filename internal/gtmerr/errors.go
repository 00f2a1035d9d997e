// Package gtmerr defines the sentinel errors shared across the pipeline.
// Call sites wrap these with fmt.Errorf("%w: ...") so callers can classify
// failures with errors.Is without parsing messages.
package gtmerr

import (
	"errors"
)

var (
	// Input errors
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrParse             = errors.New("failed to parse input file")
	ErrValidation        = errors.New("input validation failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("invalid configuration")

	// GTM API errors
	ErrAuth              = errors.New("authentication failed")
	ErrWorkspaceCreate   = errors.New("failed to create workspace")
	ErrResourceCreate    = errors.New("failed to create resource")
	ErrContainerNotFound = errors.New("container not found")
	ErrTriggerNotFound   = errors.New("trigger not found")
	ErrAPIRequest        = errors.New("GTM API request rejected")
	ErrConflict          = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")

	// Transient errors, retried by the client before escalating
	ErrRateLimited    = errors.New("API rate limit exceeded")
	ErrNetworkTimeout = errors.New("network timeout or connection failure")
	ErrServerError    = errors.New("GTM API server error")
)

// Transient reports whether err is a failure class the client retries.
func Transient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetworkTimeout) ||
		errors.Is(err, ErrServerError)
}
