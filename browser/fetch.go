package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sreekar9601/getcovered-technical-task/fetcher"
	"github.com/sreekar9601/getcovered-technical-task/models"
	"github.com/ysmood/gson"
)

// Fetch renders the page in an isolated incognito context and returns the
// settled DOM.
//
// Lifecycle:
//
//  1. Timeout guard        – per-request budget on the whole render
//  2. Acquire slot         – bounds concurrent contexts
//  3. Incognito context    – fresh cookie jar, never shared across requests
//  4. DEFER: dispose       – context + page released on every exit path
//  5. Stealth + headers    – installed before navigation or they have no effect
//  6. Hijack mount         – blocks heavy resource types before navigation
//  7. Navigate             – own hard timeout
//  8. Settle wait          – DOM-stable bounded by the settle budget;
//     overrun yields a partial snapshot, not an error
//  9. Extract              – rendered HTML, title, final URL, status
func (b *Browser) Fetch(ctx context.Context, req *fetcher.Request) (*fetcher.Result, error) {
	// ── 1. Timeout guard ────────────────────────────────────────────
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()

	// ── 2. Acquire a context slot ───────────────────────────────────
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, categorizeError(ctx.Err(), "waiting for a free browser context")
	}
	defer func() { <-b.slots }()

	b.active.Add(1)
	defer b.active.Add(-1)

	// ── 3. Isolated incognito context ───────────────────────────────
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeRender, "failed to create incognito context", err)
	}
	// ── 4. CRITICAL DEFER: dispose the context (and with it the page
	// and its cookies) on every exit path.
	defer func() {
		err := proto.TargetDisposeBrowserContext{
			BrowserContextID: incognito.BrowserContextID,
		}.Call(b.browser)
		if err != nil {
			slog.Warn("failed to dispose browser context", "error", err)
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeRender, "failed to open page", err)
	}
	defer func() { _ = page.Close() }()

	// ── 5. Stealth + browser-like headers (before navigation) ───────
	if b.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer":         gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
				"Accept-Language": gson.New("en-US,en;q=0.9"),
			},
		}.Call(page)
	}

	// ── 6. Block heavy resources before navigation ──────────────────
	if router := setupHijack(page, b.cfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 7. Navigate with its own hard timeout ───────────────────────
	navTimeout := b.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 15 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	if navErr := page.Context(navCtx).Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// ── 8. Bounded settle wait ──────────────────────────────────────
	settle := b.cfg.SettleBudget
	if settle <= 0 {
		settle = 3 * time.Second
	}
	settleCtx, settleCancel := context.WithTimeout(ctx, settle)
	partial := false
	if stableErr := page.Context(settleCtx).WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		// Best-effort snapshot of whatever rendered so far.
		partial = true
		slog.Debug("DOM did not settle within budget, taking partial snapshot",
			"url", req.URL, "error", stableErr)
	}
	settleCancel()

	// ── 9. Extract rendered DOM + metadata ──────────────────────────
	p := page.Context(ctx)

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract rendered DOM")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	// The status code is read from the navigation performance entry; CDP
	// event listeners conflict with the hijack router on newer Chromium.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	return &fetcher.Result{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		Redirected: finalURL != req.URL,
		Partial:    partial,
		Elapsed:    time.Since(start),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing errors (used for optional metadata only).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError wraps raw browser errors into typed DetectErrors.
func categorizeError(err error, msg string) *models.DetectError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDetectError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewDetectError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewDetectError(models.ErrCodeRender, msg, err)
	}
}
