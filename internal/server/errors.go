package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/personalens/personalens/internal/errors"
	"github.com/personalens/personalens/internal/server/middleware"
)

// statusForKind maps the error taxonomy onto HTTP status codes.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound, apperrors.KindEmptyResult:
		return http.StatusNotFound
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders any error as a structured JSON envelope. Rate-limited
// failures also advertise a Retry-After header.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	typed := apperrors.AsError("", err)
	envelope := apperrors.Envelope(typed).
		WithCorrelationID(middleware.GetRequestID(r.Context()))

	if typed.Kind == apperrors.KindRateLimited && typed.Wait > 0 {
		seconds := int(math.Ceil(typed.Wait.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	writeEnvelope(w, envelope, statusForKind(typed.Kind))
}

// respondEnvelope renders a pre-built envelope with an explicit status.
func respondEnvelope(w http.ResponseWriter, r *http.Request, envelope *gferrors.ErrorEnvelope, status int) {
	envelope = envelope.WithCorrelationID(middleware.GetRequestID(r.Context()))
	writeEnvelope(w, envelope, status)
}

func writeEnvelope(w http.ResponseWriter, envelope *gferrors.ErrorEnvelope, status int) {
	response := middleware.ErrorResponse{
		Error: middleware.ErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   envelope.Context,
			RequestID: envelope.CorrelationID,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// respondJSON renders a successful JSON payload.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
