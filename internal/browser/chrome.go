package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
)

// ChromeAcquirer launches headless Chrome via chromedp. Each Acquire
// produces an isolated browser tab whose lifetime ends at Close.
type ChromeAcquirer struct {
	// ExecPath overrides Chrome binary discovery when set.
	ExecPath string
}

// Acquire starts the browser and waits for it to become ready. The
// supplied context bounds startup only; the handle itself lives until
// Close so a short acquire timeout does not tear down an in-use page.
func (a *ChromeAcquirer) Acquire(ctx context.Context) (Page, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	if a != nil && strings.TrimSpace(a.ExecPath) != "" {
		opts = append(opts, chromedp.ExecPath(a.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	page := &chromePage{
		ctx: pageCtx,
		cancel: func() {
			pageCancel()
			allocCancel()
		},
	}

	// An empty task list forces browser startup.
	if err := page.run(ctx); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

type chromePage struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// run executes chromedp actions on the page, honoring the caller's
// context: if it expires first, the page is torn down so the blocked
// action unwinds instead of stalling shutdown.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(p.ctx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// RenderPNG navigates to url and captures a full-page screenshot.
func (p *chromePage) RenderPNG(ctx context.Context, url string, width int) ([]byte, error) {
	if width <= 0 {
		width = 900
	}

	var buf []byte
	err := p.run(ctx,
		chromedp.EmulateViewport(int64(width), 800),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close tears down the tab and the browser process.
func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return p.closeErr
}
