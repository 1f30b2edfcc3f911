package models

// Retrieval method names recorded in DetectResponse.ScrapingMethod.
// The two fallback variants mean the dynamic path was attempted after a
// successful static fetch but failed, so evidence comes from static markup.
const (
	MethodStatic                    = "static"
	MethodDynamic                   = "dynamic"
	MethodStaticAfterDynamicTimeout = "static-after-dynamic-timeout"
	MethodStaticAfterDynamicFailure = "static-after-dynamic-failure"
)

// AuthComponent is evidence for one class of authentication markup.
type AuthComponent struct {
	// Found reports whether any evidence was detected.
	Found bool `json:"found"`

	// HTMLSnippets holds prettified, deduplicated fragments of the
	// matched markup, in document order.
	HTMLSnippets []string `json:"html_snippets"`

	// Indicators names each piece of evidence contributing to the
	// detection (e.g. "password_input", "github_oauth"), in the order
	// first seen.
	Indicators []string `json:"indicators"`
}

// OAuthComponent extends AuthComponent with the matched identity providers.
type OAuthComponent struct {
	Found bool `json:"found"`

	// Providers is the set of matched provider names (lowercase canonical,
	// e.g. "google"), each recorded once, in the order first seen.
	Providers []string `json:"providers"`

	HTMLSnippets []string `json:"html_snippets"`
	Indicators   []string `json:"indicators"`
}

// AuthComponents bundles both sub-detector results.
type AuthComponents struct {
	TraditionalForm AuthComponent  `json:"traditional_form"`
	OAuthButtons    OAuthComponent `json:"oauth_buttons"`
}

// HasAuth reports whether either sub-detector found evidence.
func (a *AuthComponents) HasAuth() bool {
	return a.TraditionalForm.Found || a.OAuthButtons.Found
}

// Metadata holds retrieval metadata attached to a detection response.
type Metadata struct {
	ScrapeTimeMs     int64  `json:"scrape_time_ms"`
	PageTitle        string `json:"page_title,omitempty"`
	RedirectDetected bool   `json:"redirect_detected"`
}

// DetectResponse is the response for POST /api/v1/detect.
type DetectResponse struct {
	// Success indicates whether retrieval and detection completed.
	// "Nothing found" is still a success.
	Success bool `json:"success"`

	// URL is the normalized target URL.
	URL string `json:"url"`

	// AuthFound is true if either sub-detector found evidence.
	AuthFound bool `json:"auth_found"`

	// ScrapingMethod records which retrieval path produced the analyzed
	// markup (one of the Method* constants). Empty on failure.
	ScrapingMethod string `json:"scraping_method,omitempty"`

	// Components holds the per-class evidence. Nil on failure.
	Components *AuthComponents `json:"components,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	Version      string       `json:"version"`
}

// BrowserStats reports the state of the headless browser fetcher.
type BrowserStats struct {
	MaxContexts    int `json:"max_contexts"`
	ActiveContexts int `json:"active_contexts"`
}
