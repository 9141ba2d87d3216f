// Package errors defines the closed failure taxonomy for PersonaLens
// external-API access. Every terminal failure surfaced by the scraping,
// analysis, and export paths resolves to one of the kinds below, so the
// retry layer branches on kind rather than on message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind enumerates the failure classes the retry layer understands.
type Kind int

const (
	// KindUnknown is the zero value; classification never produces it
	// for a non-nil error.
	KindUnknown Kind = iota

	// KindNotFound: the subject does not exist or access is denied.
	// Never retried.
	KindNotFound

	// KindEmptyResult: the call succeeded but returned no usable
	// content. Never retried.
	KindEmptyResult

	// KindRateLimited: the remote service signaled throttling. Retried
	// after the limiter's recommended wait.
	KindRateLimited

	// KindTransient: network, timeout, or 5xx-style failure. Retried up
	// to the configured attempt bound.
	KindTransient

	// KindCleanupFailed: a scoped resource failed to release. Logged and
	// surfaced, never retried, never masks a primary error.
	KindCleanupFailed
)

// String returns the kind's stable identifier.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindEmptyResult:
		return "empty_result"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindCleanupFailed:
		return "cleanup_failed"
	default:
		return "unknown"
	}
}

// Retryable reports whether the executor may retry this kind.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindTransient
}

// Error is the typed error instance carried through the access layer.
// It is created at the point of failure detection and owned by the
// caller that receives it.
type Error struct {
	Kind    Kind
	Message string

	// Service is the service identity the failure belongs to ("apify",
	// "gemini", "browser").
	Service string

	// Subject is the offending identifier, when one exists (a username,
	// a report path).
	Subject string

	// Wait is the remote service's retry hint for rate-limited
	// failures, zero otherwise.
	Wait time.Duration

	// Attempts is the number of attempts consumed when this error
	// became terminal; zero until the executor annotates it.
	Attempts int

	// Cleanup holds a secondary resource-release failure attached to
	// this primary error. It never replaces the primary.
	Cleanup *Error

	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Service != "" {
		fmt.Fprintf(&b, " [%s]", e.Service)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Subject != "" {
		fmt.Fprintf(&b, " (subject: %s)", e.Subject)
	}
	if e.Wait > 0 {
		fmt.Fprintf(&b, " (retry after %s)", e.Wait.Round(time.Millisecond))
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	if e.Cleanup != nil {
		fmt.Fprintf(&b, "; additionally: %v", e.Cleanup)
	}
	return b.String()
}

// Unwrap exposes the underlying cause to errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NotFound reports a missing or access-restricted subject.
func NotFound(service, subject, message string) *Error {
	return &Error{Kind: KindNotFound, Service: service, Subject: subject, Message: message}
}

// EmptyResult reports a successful call that produced no usable content.
func EmptyResult(service, subject, message string) *Error {
	return &Error{Kind: KindEmptyResult, Service: service, Subject: subject, Message: message}
}

// RateLimited reports remote throttling. wait is the server's retry
// hint and may be zero when the service gave none.
func RateLimited(service string, wait time.Duration, message string) *Error {
	return &Error{Kind: KindRateLimited, Service: service, Wait: wait, Message: message}
}

// Transient reports a recoverable network/timeout/5xx failure.
func Transient(service, message string, cause error) *Error {
	return &Error{Kind: KindTransient, Service: service, Message: message, cause: cause}
}

// CleanupFailed reports that a scoped resource failed to release.
func CleanupFailed(service, message string, cause error) *Error {
	return &Error{Kind: KindCleanupFailed, Service: service, Message: message, cause: cause}
}

// KindOf classifies an arbitrary error into the taxonomy. Typed errors
// keep their own kind; context cancellation, deadline expiry, and any
// unrecognized failure classify as transient so the retry bound still
// applies.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindTransient
}

// AsError extracts the typed error from a chain, or wraps an untyped
// one as transient so callers always receive a classified instance.
func AsError(service string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Transient(service, "unclassified failure", err)
}

// FromStatus maps a provider HTTP status to a typed error. retryAfter
// applies only to 429 responses.
func FromStatus(service, subject string, status int, detail string, retryAfter time.Duration) *Error {
	detail = strings.TrimSpace(detail)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound:
		if detail == "" {
			detail = fmt.Sprintf("subject missing or access denied (status %d)", status)
		}
		return NotFound(service, subject, detail)
	case status == http.StatusTooManyRequests:
		if detail == "" {
			detail = "service rate limit exceeded"
		}
		return RateLimited(service, retryAfter, detail)
	default:
		if detail == "" {
			detail = fmt.Sprintf("request failed with status %d", status)
		}
		return Transient(service, detail, nil)
	}
}

// WithAttempts annotates a terminal error with the attempt count the
// executor consumed. Untyped errors are classified first.
func WithAttempts(service string, err error, attempts int) *Error {
	typed := AsError(service, err)
	if typed == nil {
		return nil
	}
	annotated := *typed
	annotated.Attempts = attempts
	return &annotated
}

// AttachCleanup pairs a resource-release failure with the primary error
// already propagating. When there is no primary, the cleanup failure
// itself surfaces; it is never silently dropped and never replaces a
// primary.
func AttachCleanup(primary error, cleanup *Error) error {
	if cleanup == nil {
		return primary
	}
	if primary == nil {
		return cleanup
	}
	typed := AsError(cleanup.Service, primary)
	annotated := *typed
	annotated.Cleanup = cleanup
	return &annotated
}
