package errors

import (
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
)

// Code returns the envelope code used on the CLI and HTTP surfaces.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "SUBJECT_NOT_FOUND"
	case KindEmptyResult:
		return "NO_CONTENT_AVAILABLE"
	case KindRateLimited:
		return "RATE_LIMIT_EXCEEDED"
	case KindTransient:
		return "EXTERNAL_SERVICE_ERROR"
	case KindCleanupFailed:
		return "RESOURCE_CLEANUP_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Envelope converts any error into a gofulmen error envelope carrying
// the taxonomy kind and structured context for terminal reporting.
func Envelope(err error) *gferrors.ErrorEnvelope {
	if err == nil {
		return nil
	}

	typed := AsError("", err)
	envelope := gferrors.NewErrorEnvelope(typed.Kind.Code(), typed.Message)

	context := map[string]interface{}{
		"kind": typed.Kind.String(),
	}
	if typed.Service != "" {
		context["service"] = typed.Service
	}
	if typed.Subject != "" {
		context["subject"] = typed.Subject
	}
	if typed.Wait > 0 {
		context["wait_seconds"] = typed.Wait.Round(time.Millisecond).Seconds()
	}
	if typed.Attempts > 0 {
		context["attempts"] = typed.Attempts
	}
	if typed.Cleanup != nil {
		context["cleanup_failure"] = typed.Cleanup.Error()
	}
	if typed.cause != nil {
		context["wrapped_error"] = typed.cause.Error()
	}

	if updated, err := envelope.WithContext(context); err == nil {
		envelope = updated
	}
	return envelope
}
