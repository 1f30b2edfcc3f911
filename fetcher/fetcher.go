// Package fetcher defines the page-retrieval contract shared by the
// static (plain HTTP) and dynamic (headless browser) paths.
package fetcher

import (
	"context"
	"time"
)

// Fetcher is the interface both retrieval paths implement.
type Fetcher interface {
	// Name returns the fetcher identifier ("static" or "dynamic").
	Name() string

	// Fetch retrieves the page markup for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything a fetcher needs to retrieve a page.
type Request struct {
	// URL is the normalized target URL.
	URL string

	// Timeout is the per-path budget. The caller's context deadline
	// still dominates when it fires first.
	Timeout time.Duration
}

// Result is the output of a successful fetch. It is immutable once
// produced; the orchestrator owns it until handed to the detector.
type Result struct {
	// HTML is the raw (static) or rendered (dynamic) markup.
	HTML string

	// Title is the page title, best effort.
	Title string

	// StatusCode is the HTTP status. Zero for the dynamic path when the
	// browser cannot report one.
	StatusCode int

	// FinalURL is the URL after following all redirects.
	FinalURL string

	// Redirected reports whether any redirect occurred.
	Redirected bool

	// Partial is set by the dynamic path when the settle budget elapsed
	// before the page went stable and the DOM is a best-effort snapshot.
	Partial bool

	// Elapsed is the wall-clock fetch duration.
	Elapsed time.Duration
}
