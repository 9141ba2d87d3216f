// Package browser provides scoped acquisition of browser-automation
// handles with guaranteed release. Report/image export routines run
// their rendering inside a scope; the handle never escapes it and is
// released exactly once on every exit path.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	apperrors "github.com/personalens/personalens/internal/errors"
)

// ServiceName is the service identity used for browser failures.
const ServiceName = "browser"

// Page is a browser-automation handle. Implementations render a target
// document to a PNG screenshot.
type Page interface {
	// RenderPNG navigates to url and captures a full-page screenshot at
	// the given viewport width.
	RenderPNG(ctx context.Context, url string, width int) ([]byte, error)

	// Close releases the handle. Called exactly once by the manager.
	Close() error
}

// Acquirer produces page handles. The chromedp implementation launches
// headless Chrome; tests substitute fakes.
type Acquirer interface {
	Acquire(ctx context.Context) (Page, error)
}

// Manager scopes page handles to a callback. AcquireTimeout bounds
// acquisition only; the caller's context governs use.
type Manager struct {
	Acquirer       Acquirer
	AcquireTimeout time.Duration
	Logger         *logging.Logger
}

// WithPage acquires a page, runs fn with it, and guarantees release
// exactly once whether fn returns normally, returns an error, panics,
// or the context expires mid-use. A release failure is classified as a
// cleanup failure: attached as secondary context when a primary error
// is already propagating, surfaced on its own otherwise, and always
// logged.
func (m *Manager) WithPage(ctx context.Context, fn func(ctx context.Context, page Page) error) (retErr error) {
	if m == nil || m.Acquirer == nil {
		return apperrors.Transient(ServiceName, "browser manager is not configured", nil)
	}
	if fn == nil {
		return apperrors.Transient(ServiceName, "page callback is required", nil)
	}

	acquireCtx := ctx
	if m.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.AcquireTimeout)
		defer cancel()
	}

	page, err := m.Acquirer.Acquire(acquireCtx)
	if err != nil {
		// No handle was produced, so no release is owed.
		if acquireCtx.Err() != nil {
			return apperrors.Transient(ServiceName, "browser acquisition timed out", acquireCtx.Err())
		}
		return apperrors.Transient(ServiceName, "browser acquisition failed", err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if closeErr := page.Close(); closeErr != nil {
				cleanup := apperrors.CleanupFailed(ServiceName, "page release failed", closeErr)
				if m.Logger != nil {
					m.Logger.Error("browser page release failed", zap.Error(closeErr))
				}
				retErr = apperrors.AttachCleanup(retErr, cleanup)
			}
		})
	}
	// Deferred so release also runs when fn panics; the panic then
	// continues to propagate.
	defer release()

	if err := fn(ctx, page); err != nil {
		retErr = err
	}
	release()
	return retErr
}
