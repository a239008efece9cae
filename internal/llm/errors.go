package llm

import (
	"errors"
	"fmt"
	"strings"

	"market-report/internal/api"
)

var (
	ErrNoCredential          = errors.New("no credential configured")
	ErrEmptyCompletion       = errors.New("empty completion")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrNoProviders           = errors.New("no credentialed providers configured")
	ErrDuplicateProvider     = errors.New("duplicate provider")
	ErrDuplicatePriority     = errors.New("duplicate provider priority")
	ErrEmptyPrompt           = errors.New("empty prompt")
)

// ProviderError is a failed completion call. Transient errors are retried on the
// same provider; everything else moves on to the next provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FromStatus builds a ProviderError from an HTTP status code.
// 408, 429 and 5xx are transient; other codes (401, 403, 400, ...) are fatal.
func FromStatus(provider string, status int, err error) error {
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Transient:  api.IsRetryableStatus(status),
		Err:        err,
	}
}

// Fatal marks err as non-retryable for provider.
func Fatal(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// Classify wraps an arbitrary error from a provider call. Timeouts and network
// errors are transient; an error already classified is returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		return FromStatus(provider, se.StatusCode, err)
	}
	return &ProviderError{Provider: provider, Transient: api.IsRetryable(err), Err: err}
}

// IsTransient reports whether err should be retried on the same provider.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return api.IsRetryable(err)
}

// ProviderAttempt is the last error seen from one provider.
type ProviderAttempt struct {
	Provider string
	Calls    int
	Err      error
}

// AllProvidersExhaustedError carries one entry per attempted provider, in the
// order they were tried.
type AllProvidersExhaustedError struct {
	Attempts []ProviderAttempt
}

func (e *AllProvidersExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers exhausted"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s after %d call(s): %v", a.Provider, a.Calls, a.Err))
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

func (e *AllProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Providers lists attempted provider names in order.
func (e *AllProvidersExhaustedError) Providers() []string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Provider)
	}
	return names
}
