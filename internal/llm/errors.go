// Package llm carries the error taxonomy shared by every model-provider
// adapter. Callers inspect the kind to decide on retry or backoff; the
// adapters themselves never retry.
package llm

import "fmt"

type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindAuthFailed  ErrorKind = "auth_failed"
	KindTimeout     ErrorKind = "timeout"
	KindUnknown     ErrorKind = "unknown"
)

// ProviderError wraps a failure from a language-model or embedding provider
// with a kind the surrounding service can act on.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}
