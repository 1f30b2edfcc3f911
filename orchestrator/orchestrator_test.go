package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/detector"
	"github.com/sreekar9601/getcovered-technical-task/fetcher"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// loginPage has both auth markup and enough visible text to pass the
// density heuristic.
var loginPage = `<html><head><title>Sign in</title></head><body>
<p>` + strings.Repeat("Welcome back to the service, please authenticate below. ", 8) + `</p>
<form action="/session">
  <input type="email" name="email">
  <input type="password" name="password">
  <button type="submit">Sign in</button>
</form>
</body></html>`

// plainPage is dense enough but carries no auth markup at all.
var plainPage = `<html><body><p>` +
	strings.Repeat("Just marketing copy with no way to sign in anywhere. ", 10) +
	`</p></body></html>`

type fakeFetcher struct {
	name    string
	result  *fetcher.Result
	err     error
	calls   atomic.Int32
	lastURL string
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(_ context.Context, req *fetcher.Request) (*fetcher.Result, error) {
	f.calls.Add(1)
	f.lastURL = req.URL
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// blockingFetcher never returns until its context is done, then reports
// the timeout the way the browser path does.
type blockingFetcher struct {
	calls atomic.Int32
}

func (f *blockingFetcher) Name() string { return "dynamic" }

func (f *blockingFetcher) Fetch(ctx context.Context, _ *fetcher.Request) (*fetcher.Result, error) {
	f.calls.Add(1)
	<-ctx.Done()
	return nil, models.NewDetectError(models.ErrCodeTimeout, "navigation to target URL failed", ctx.Err())
}

type fakeClassifier struct {
	calls    atomic.Int32
	evidence *models.AuthComponents
}

func (c *fakeClassifier) Classify(_ context.Context, _, _ string) (*models.AuthComponents, error) {
	c.calls.Add(1)
	return c.evidence, nil
}

func newOrchestrator(static, dynamic fetcher.Fetcher, cl Classifier) *Orchestrator {
	return New(static, dynamic, detector.New(config.DetectorConfig{}), cl, config.FetcherConfig{
		StaticTimeout:  time.Second,
		DynamicTimeout: time.Second,
		OuterDeadline:  5 * time.Second,
		MinTextLength:  200,
	})
}

func staticResult(html string) *fetcher.Result {
	return &fetcher.Result{HTML: html, StatusCode: 200, FinalURL: "https://example.com/login"}
}

func TestDetect_StaticSufficient(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(loginPage)}
	dynamic := &fakeFetcher{name: "dynamic"}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com/login"})

	if !resp.Success || !resp.AuthFound {
		t.Fatalf("expected successful detection, got %+v", resp)
	}
	if resp.ScrapingMethod != models.MethodStatic {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodStatic)
	}
	if dynamic.calls.Load() != 0 {
		t.Error("dynamic path should not run when static evidence suffices")
	}
	if static.lastURL != "https://example.com/login" {
		t.Errorf("scheme not defaulted: fetcher got %q", static.lastURL)
	}
}

func TestDetect_EscalatesOnBlockedStatus(t *testing.T) {
	static := &fakeFetcher{name: "static", err: models.NewBlockedError(403, nil)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, FinalURL: "https://example.com"}}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if dynamic.calls.Load() != 1 {
		t.Fatal("HTTP 403 must escalate to the dynamic path")
	}
	if !resp.Success || resp.ScrapingMethod != models.MethodDynamic {
		t.Errorf("expected dynamic success, got %+v", resp)
	}
}

func TestDetect_BothPathsFailSurfacesDynamicError(t *testing.T) {
	static := &fakeFetcher{name: "static", err: models.NewBlockedError(403, nil)}
	dynamic := &fakeFetcher{name: "dynamic", err: models.NewDetectError(models.ErrCodeRender, "browser crashed", nil)}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if resp.Success {
		t.Fatal("expected failure when both paths fail")
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeRender {
		t.Errorf("surfaced error should be the dynamic failure, got %+v", resp.Error)
	}
}

func TestDetect_EscalatesOnThinMarkup(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(`<html><body><div id="root"></div></body></html>`)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, FinalURL: "https://spa.example.com"}}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "spa.example.com"})

	if dynamic.calls.Load() != 1 {
		t.Fatal("SPA shell markup must escalate to the dynamic path")
	}
	if resp.ScrapingMethod != models.MethodDynamic {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodDynamic)
	}
}

func TestDetect_EscalatesWhenNoEvidenceInStatic(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, FinalURL: "https://example.com"}}

	newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if dynamic.calls.Load() != 1 {
		t.Error("zero evidence in static markup must escalate to the dynamic path")
	}
}

func TestDetect_DynamicTimeoutFallsBackToStatic(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &fakeFetcher{name: "dynamic", err: models.NewDetectError(models.ErrCodeTimeout, "navigation timed out", context.DeadlineExceeded)}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if !resp.Success {
		t.Fatalf("static markup exists, fallback must be a success: %+v", resp.Error)
	}
	if resp.ScrapingMethod != models.MethodStaticAfterDynamicTimeout {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodStaticAfterDynamicTimeout)
	}
	if resp.AuthFound {
		t.Error("plain page fallback should carry empty evidence")
	}
}

func TestDetect_OuterDeadlineAbortsDynamicFetch(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &blockingFetcher{}
	o := New(static, dynamic, detector.New(config.DetectorConfig{}), nil, config.FetcherConfig{
		StaticTimeout:  time.Second,
		DynamicTimeout: 30 * time.Second,
		OuterDeadline:  150 * time.Millisecond,
		MinTextLength:  200,
	})

	start := time.Now()
	resp := o.Detect(context.Background(), &models.DetectRequest{URL: "example.com"})
	elapsed := time.Since(start)

	if dynamic.calls.Load() != 1 {
		t.Fatal("dynamic path should have been attempted")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("outer deadline of 150ms did not dominate the 30s dynamic budget: took %v", elapsed)
	}
	if !resp.Success {
		t.Fatalf("static markup exists, deadline overrun must fall back: %+v", resp.Error)
	}
	if resp.ScrapingMethod != models.MethodStaticAfterDynamicTimeout {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodStaticAfterDynamicTimeout)
	}
}

func TestDetect_OuterDeadlineWithoutStaticMarkupFails(t *testing.T) {
	static := &fakeFetcher{name: "static", err: models.NewBlockedError(403, nil)}
	dynamic := &blockingFetcher{}
	o := New(static, dynamic, detector.New(config.DetectorConfig{}), nil, config.FetcherConfig{
		StaticTimeout:  time.Second,
		DynamicTimeout: 30 * time.Second,
		OuterDeadline:  150 * time.Millisecond,
		MinTextLength:  200,
	})

	start := time.Now()
	resp := o.Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("outer deadline of 150ms did not dominate the dynamic budget: took %v", elapsed)
	}
	if resp.Success {
		t.Fatal("no static markup exists, deadline overrun must surface as a failure")
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeTimeout {
		t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeTimeout)
	}
}

func TestDetect_DynamicFailureInvokesClassifier(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &fakeFetcher{name: "dynamic", err: models.NewDetectError(models.ErrCodeRender, "browser crashed", nil)}
	classifier := &fakeClassifier{evidence: &models.AuthComponents{
		TraditionalForm: models.AuthComponent{Found: true, HTMLSnippets: []string{}, Indicators: []string{"password_input"}},
		OAuthButtons:    models.OAuthComponent{Providers: []string{}, HTMLSnippets: []string{}, Indicators: []string{}},
	}}

	resp := newOrchestrator(static, dynamic, classifier).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if resp.ScrapingMethod != models.MethodStaticAfterDynamicFailure {
		t.Fatalf("method = %s, want %s", resp.ScrapingMethod, models.MethodStaticAfterDynamicFailure)
	}
	if classifier.calls.Load() != 1 {
		t.Error("classifier must run when heuristics find nothing after a dynamic failure")
	}
	if !resp.AuthFound {
		t.Error("classifier evidence should be adopted")
	}
}

func TestDetect_ClassifierRunsAfterDynamicTimeout(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &fakeFetcher{name: "dynamic", err: models.NewDetectError(models.ErrCodeTimeout, "navigation timed out", context.DeadlineExceeded)}
	classifier := &fakeClassifier{}

	resp := newOrchestrator(static, dynamic, classifier).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if resp.ScrapingMethod != models.MethodStaticAfterDynamicTimeout {
		t.Fatalf("method = %s, want %s", resp.ScrapingMethod, models.MethodStaticAfterDynamicTimeout)
	}
	if classifier.calls.Load() != 1 {
		t.Error("classifier must also run when the dynamic path timed out and heuristics found nothing")
	}
}

func TestDetect_ClassifierNotInvokedWhenEvidenceExists(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(loginPage)}
	dynamic := &fakeFetcher{name: "dynamic"}
	classifier := &fakeClassifier{}

	newOrchestrator(static, dynamic, classifier).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if classifier.calls.Load() != 0 {
		t.Error("classifier must not run when heuristics found evidence")
	}
}

func TestDetect_PartialRenderPrefersStaticBasis(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(plainPage)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, Partial: true, FinalURL: "https://example.com"}}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if resp.ScrapingMethod != models.MethodStaticAfterDynamicTimeout {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodStaticAfterDynamicTimeout)
	}
}

func TestDetect_PartialRenderUsedWhenNoStatic(t *testing.T) {
	static := &fakeFetcher{name: "static", err: models.NewDetectError(models.ErrCodeNetwork, "refused", nil)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, Partial: true, FinalURL: "https://example.com"}}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com"})

	if !resp.Success || resp.ScrapingMethod != models.MethodDynamic {
		t.Errorf("partial render should be used when no static markup exists, got %+v", resp)
	}
}

func TestDetect_ForceDynamicSkipsStatic(t *testing.T) {
	static := &fakeFetcher{name: "static", result: staticResult(loginPage)}
	dynamic := &fakeFetcher{name: "dynamic", result: &fetcher.Result{HTML: loginPage, FinalURL: "https://example.com"}}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{
		URL:          "example.com",
		ForceDynamic: true,
	})

	if static.calls.Load() != 0 {
		t.Error("force_dynamic must skip the static path")
	}
	if resp.ScrapingMethod != models.MethodDynamic {
		t.Errorf("method = %s, want %s", resp.ScrapingMethod, models.MethodDynamic)
	}
}

func TestDetect_UnsupportedContentDoesNotEscalate(t *testing.T) {
	static := &fakeFetcher{name: "static", err: models.NewDetectError(models.ErrCodeUnsupportedContent, "got a PDF", nil)}
	dynamic := &fakeFetcher{name: "dynamic"}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "example.com/report.pdf"})

	if dynamic.calls.Load() != 0 {
		t.Error("non-HTML content should not escalate to a browser render")
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeUnsupportedContent {
		t.Errorf("expected unsupported-content failure, got %+v", resp)
	}
}

func TestDetect_InvalidURL(t *testing.T) {
	static := &fakeFetcher{name: "static"}
	dynamic := &fakeFetcher{name: "dynamic"}

	resp := newOrchestrator(static, dynamic, nil).Detect(context.Background(), &models.DetectRequest{URL: "notaurl"})

	if resp.Success {
		t.Fatal("expected failure for invalid URL")
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidURL {
		t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeInvalidURL)
	}
	if static.calls.Load() != 0 || dynamic.calls.Load() != 0 {
		t.Error("no fetch should happen for an invalid URL")
	}
}
