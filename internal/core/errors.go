package core

import (
	"errors"
	"fmt"
)

// ProviderError is a rejection returned by an upstream provider. Message is
// the provider's own text and must be surfaced without modification.
type ProviderError struct {
	// HTTP status returned by the provider
	Status int
	// OAuth error code (e.g. "invalid_grant"), if any
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("provider returned status %d", e.Status)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
