package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies adapter failures into the closed set the orchestrator
// branches on. Callers never branch on provider-specific error text.
type ErrorKind string

const (
	// KindUnconfigured means no credential was present at construction.
	KindUnconfigured ErrorKind = "unconfigured"
	// KindUnavailable means the provider rejected the call or a health check failed.
	KindUnavailable ErrorKind = "unavailable"
	// KindTimeout means the per-call deadline expired.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidResponse means the provider replied but the content failed
	// adapter-level validation.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindRateLimited means the provider throttled the call.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// AdapterError is the only error type adapters return past their boundary.
type AdapterError struct {
	Kind    ErrorKind
	Adapter string
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s adapter: %s (%s): %v", e.Adapter, e.Message, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s adapter: %s (%s)", e.Adapter, e.Message, e.Kind)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// NewAdapterError builds an AdapterError with the given kind.
func NewAdapterError(kind ErrorKind, adapter, message string, cause error) *AdapterError {
	return &AdapterError{Kind: kind, Adapter: adapter, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from an error. Context deadline and
// cancellation errors map to KindTimeout; anything else unclassified is
// KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetryable reports whether the error is safe to re-issue. Only transient
// kinds retry; configuration and validation failures never do.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// kindFromStatusCode maps an HTTP status code to an ErrorKind.
func kindFromStatusCode(status int) ErrorKind {
	switch {
	case status == 400 || status == 404 || status == 422:
		return KindInvalidResponse
	case status == 401 || status == 403:
		return KindUnavailable
	case status == 408:
		return KindTimeout
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// classifyMessage maps provider error text onto an ErrorKind. Providers wrap
// status codes in free text, so this is a best-effort translation; anything
// unmatched stays KindUnknown.
func classifyMessage(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "429") || strings.Contains(m, "rate limit"):
		return KindRateLimited
	case strings.Contains(m, "timeout") || strings.Contains(m, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(m, "401") || strings.Contains(m, "unauthorized") ||
		strings.Contains(m, "invalid api key") || strings.Contains(m, "invalid key"):
		return KindUnavailable
	case strings.Contains(m, "403") || strings.Contains(m, "forbidden"):
		return KindUnavailable
	case strings.Contains(m, "500") || strings.Contains(m, "502") ||
		strings.Contains(m, "503") || strings.Contains(m, "internal server") ||
		strings.Contains(m, "overloaded"):
		return KindUnavailable
	case strings.Contains(m, "unmarshal") || strings.Contains(m, "parse") ||
		strings.Contains(m, "decode"):
		return KindInvalidResponse
	default:
		return KindUnknown
	}
}
