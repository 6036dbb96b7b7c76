package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured = errors.New("API configuration error")
	ErrInvalidBody   = errors.New("Invalid request body")
	ErrImageRequired = errors.New("Image data is required")
	ErrUnknownTarget = errors.New("Unknown target emotion")
)

// UpstreamError wraps a failed call to the vision provider. Timeout is set
// when the per-request deadline expired before the provider answered.
type UpstreamError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
