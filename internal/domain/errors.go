package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrMediaNotFound        = errors.New("media not found")
	ErrInvalidStatus        = errors.New("invalid status transition")
	ErrConfigurationMissing = errors.New("provider configuration missing")
)

// ProviderError is the single kind reported for any failed provider call.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("provider %s: HTTP %d (code %d): %s", e.Op, e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("provider %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
