// Package orchestrator owns the dual-path retrieval strategy: static
// first, escalate to the headless browser when the static result is
// insufficient, and degrade to the static markup when the dynamic path
// fails after a static success.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/detector"
	"github.com/sreekar9601/getcovered-technical-task/fetcher"
	"github.com/sreekar9601/getcovered-technical-task/models"
	"github.com/sreekar9601/getcovered-technical-task/urlutil"
)

// Classifier is the optional LLM fallback, invoked only when heuristic
// detection finds nothing in static markup after a dynamic-path failure.
// A nil Classifier (or one returning nil evidence) is a valid no-op.
type Classifier interface {
	Classify(ctx context.Context, markup, pageURL string) (*models.AuthComponents, error)
}

// Retrieval state machine. Each request walks
// Start → StaticAttempted → (Success | NeedsDynamic) → DynamicAttempted → Done
// exactly once; there are no retries within a path.
type state int

const (
	stateStart state = iota
	stateStaticAttempted
	stateNeedsDynamic
	stateDynamicAttempted
	stateDone
)

// Orchestrator wires the two fetchers, the detector and the optional
// classifier into the single detect operation.
type Orchestrator struct {
	static     fetcher.Fetcher
	dynamic    fetcher.Fetcher
	det        *detector.Detector
	classifier Classifier
	cfg        config.FetcherConfig
}

// New creates an Orchestrator. classifier may be nil.
func New(static, dynamic fetcher.Fetcher, det *detector.Detector, classifier Classifier, cfg config.FetcherConfig) *Orchestrator {
	if cfg.StaticTimeout <= 0 {
		cfg.StaticTimeout = 10 * time.Second
	}
	if cfg.DynamicTimeout <= 0 {
		cfg.DynamicTimeout = 30 * time.Second
	}
	if cfg.OuterDeadline <= 0 {
		cfg.OuterDeadline = 45 * time.Second
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 200
	}
	return &Orchestrator{
		static:     static,
		dynamic:    dynamic,
		det:        det,
		classifier: classifier,
		cfg:        cfg,
	}
}

// Detect normalizes the target URL, retrieves the page via the dual-path
// strategy, and runs authentication detection over the chosen markup.
// It never returns an error: failures are classified inside the response.
func (o *Orchestrator) Detect(ctx context.Context, req *models.DetectRequest) *models.DetectResponse {
	start := time.Now()

	normalized, err := urlutil.Normalize(req.URL)
	if err != nil {
		return failureResponse(req.URL, err, start)
	}

	outer := o.cfg.OuterDeadline
	if req.Timeout > 0 {
		outer = time.Duration(req.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, outer)
	defer cancel()

	var (
		st         = stateStart
		staticRes  *fetcher.Result
		staticErr  error
		dynamicRes *fetcher.Result
		dynamicErr error
		evidence   *models.AuthComponents
	)
	if req.ForceDynamic {
		st = stateNeedsDynamic
	}

	for st != stateDone {
		switch st {
		case stateStart:
			staticRes, staticErr = o.static.Fetch(ctx, &fetcher.Request{
				URL:     normalized,
				Timeout: o.cfg.StaticTimeout,
			})
			st = stateStaticAttempted

		case stateStaticAttempted:
			if staticErr != nil {
				if escalatesOnError(staticErr) {
					slog.Info("static fetch failed, escalating to dynamic",
						"url", normalized, "error", staticErr)
					st = stateNeedsDynamic
					continue
				}
				return failureResponse(normalized, staticErr, start)
			}
			if fetcher.InsufficientMarkup(staticRes.HTML, o.cfg.MinTextLength) {
				slog.Info("static markup judged insufficient, escalating to dynamic",
					"url", normalized)
				st = stateNeedsDynamic
				continue
			}
			evidence = o.det.Detect(staticRes.HTML)
			if !evidence.HasAuth() {
				slog.Info("no auth evidence in static markup, escalating to dynamic",
					"url", normalized)
				st = stateNeedsDynamic
				continue
			}
			return o.successResponse(ctx, normalized, staticRes, models.MethodStatic, evidence, start)

		case stateNeedsDynamic:
			// The dynamic path gets its own budget, independent of time
			// already spent on the static fetch; the outer deadline on
			// ctx still dominates.
			dynamicRes, dynamicErr = o.dynamic.Fetch(ctx, &fetcher.Request{
				URL:     normalized,
				Timeout: o.cfg.DynamicTimeout,
			})
			st = stateDynamicAttempted

		case stateDynamicAttempted:
			st = stateDone

			// A strict (non-partial) dynamic success is authoritative. A
			// partial render counts only when no static markup exists.
			if dynamicErr == nil && (!dynamicRes.Partial || staticRes == nil) {
				return o.successResponse(ctx, normalized, dynamicRes, models.MethodDynamic, nil, start)
			}
			if staticRes != nil {
				method := models.MethodStaticAfterDynamicFailure
				if isTimeoutOutcome(dynamicErr, dynamicRes) {
					method = models.MethodStaticAfterDynamicTimeout
				}
				slog.Warn("dynamic path degraded, falling back to static markup",
					"url", normalized, "method", method, "error", dynamicErr)
				return o.successResponse(ctx, normalized, staticRes, method, nil, start)
			}
			return failureResponse(normalized, dynamicErr, start)
		}
	}

	// Unreachable; every state transition above returns or continues.
	return failureResponse(normalized, models.NewDetectError(
		models.ErrCodeInternal, "retrieval state machine did not terminate", nil), start)
}

// escalatesOnError reports whether a static-path failure should trigger
// the dynamic path instead of surfacing. Blocked statuses, timeouts and
// network failures are worth a browser attempt; invalid URLs, TLS
// failures and non-HTML content are not.
func escalatesOnError(err error) bool {
	var de *models.DetectError
	if !errors.As(err, &de) {
		return false
	}
	switch de.Code {
	case models.ErrCodeBlocked, models.ErrCodeTimeout, models.ErrCodeNetwork:
		return true
	}
	return false
}

// isTimeoutOutcome distinguishes the two fallback method variants: a
// dynamic timeout (including a settle-budget overrun that produced only a
// partial render) versus any other dynamic failure.
func isTimeoutOutcome(dynamicErr error, dynamicRes *fetcher.Result) bool {
	if dynamicErr == nil {
		return dynamicRes != nil && dynamicRes.Partial
	}
	var de *models.DetectError
	return errors.As(dynamicErr, &de) && de.Code == models.ErrCodeTimeout
}

func (o *Orchestrator) successResponse(ctx context.Context, url string, res *fetcher.Result, method string, evidence *models.AuthComponents, start time.Time) *models.DetectResponse {
	if evidence == nil {
		evidence = o.det.Detect(res.HTML)
	}

	// LLM fallback: only for static markup kept after the dynamic path
	// degraded (timeout or render failure), and only when the heuristics
	// found nothing. Best effort; any classifier problem degrades to
	// "not found".
	fellBack := method == models.MethodStaticAfterDynamicFailure ||
		method == models.MethodStaticAfterDynamicTimeout
	if fellBack && !evidence.HasAuth() && o.classifier != nil {
		// The outer deadline may already be spent when the dynamic path
		// timed out, so the classifier gets its own detached budget.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 20*time.Second)
		defer cancel()
		if llmEvidence, err := o.classifier.Classify(cctx, res.HTML, url); err != nil {
			slog.Warn("fallback classifier failed", "url", url, "error", err)
		} else if llmEvidence != nil {
			evidence = llmEvidence
		}
	}

	title := res.Title
	if title == "" {
		title = fetcher.ExtractTitle(res.HTML)
	}

	return &models.DetectResponse{
		Success:        true,
		URL:            url,
		AuthFound:      evidence.HasAuth(),
		ScrapingMethod: method,
		Components:     evidence,
		Metadata: &models.Metadata{
			ScrapeTimeMs:     time.Since(start).Milliseconds(),
			PageTitle:        title,
			RedirectDetected: res.Redirected,
		},
	}
}

func failureResponse(url string, err error, start time.Time) *models.DetectResponse {
	var de *models.DetectError
	if !errors.As(err, &de) {
		de = models.NewDetectError(models.ErrCodeInternal, err.Error(), err)
	}
	return &models.DetectResponse{
		Success:   false,
		URL:       url,
		AuthFound: false,
		Metadata: &models.Metadata{
			ScrapeTimeMs: time.Since(start).Milliseconds(),
		},
		Error: de.ToDetail(),
	}
}
