package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKindOfKeepsTypedKind(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{NotFound("apify", "ghost", "user does not exist"), KindNotFound},
		{EmptyResult("apify", "quiet", "no tweets"), KindEmptyResult},
		{RateLimited("gemini", 30*time.Second, "throttled"), KindRateLimited},
		{Transient("apify", "connection reset", nil), KindTransient},
		{CleanupFailed("browser", "page close failed", nil), KindCleanupFailed},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err))
	}
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	inner := NotFound("apify", "ghost", "user does not exist")
	wrapped := fmt.Errorf("fetch tweets: %w", inner)
	require.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfDefaultsToTransient(t *testing.T) {
	require.Equal(t, KindTransient, KindOf(fmt.Errorf("socket hang up")))
}

func TestRetryable(t *testing.T) {
	require.True(t, KindRateLimited.Retryable())
	require.True(t, KindTransient.Retryable())
	require.False(t, KindNotFound.Retryable())
	require.False(t, KindEmptyResult.Retryable())
	require.False(t, KindCleanupFailed.Retryable())
}

func TestFromStatus(t *testing.T) {
	require.Equal(t, KindNotFound, FromStatus("apify", "ghost", http.StatusNotFound, "", 0).Kind)
	require.Equal(t, KindNotFound, FromStatus("apify", "ghost", http.StatusForbidden, "", 0).Kind)

	limited := FromStatus("gemini", "", http.StatusTooManyRequests, "slow down", 45*time.Second)
	require.Equal(t, KindRateLimited, limited.Kind)
	require.Equal(t, 45*time.Second, limited.Wait)

	require.Equal(t, KindTransient, FromStatus("apify", "", http.StatusBadGateway, "", 0).Kind)
	require.Equal(t, KindTransient, FromStatus("apify", "", http.StatusBadRequest, "", 0).Kind)
}

func TestWithAttemptsAnnotates(t *testing.T) {
	err := WithAttempts("apify", Transient("apify", "timeout", nil), 4)
	require.Equal(t, 4, err.Attempts)
	require.Contains(t, err.Error(), "after 4 attempts")
}

func TestAttachCleanupNeverMasksPrimary(t *testing.T) {
	primary := Transient("browser", "navigation failed", nil)
	cleanup := CleanupFailed("browser", "page close failed", nil)

	combined := AttachCleanup(primary, cleanup)
	require.Equal(t, KindTransient, KindOf(combined))

	typed := AsError("browser", combined)
	require.NotNil(t, typed.Cleanup)
	require.Equal(t, KindCleanupFailed, typed.Cleanup.Kind)
}

func TestAttachCleanupSurfacesWithoutPrimary(t *testing.T) {
	cleanup := CleanupFailed("browser", "page close failed", nil)
	require.Equal(t, KindCleanupFailed, KindOf(AttachCleanup(nil, cleanup)))
}

func TestEnvelopeCarriesKindContext(t *testing.T) {
	err := WithAttempts("gemini", RateLimited("gemini", 30*time.Second, "throttled"), 3)
	envelope := Envelope(err)
	require.NotNil(t, envelope)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", envelope.Code)
	require.Equal(t, "rate_limited", envelope.Context["kind"])
	require.Equal(t, "gemini", envelope.Context["service"])
	require.EqualValues(t, 3, envelope.Context["attempts"])
}
