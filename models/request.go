package models

// DetectRequest is the payload for POST /api/v1/detect.
type DetectRequest struct {
	// URL is the target page to analyze. A missing scheme defaults to https.
	// Required.
	URL string `json:"url" binding:"required"`

	// ForceDynamic skips the static path and goes straight to the
	// headless browser. Slower but more reliable for JS-heavy sites.
	// Default: false.
	ForceDynamic bool `json:"force_dynamic,omitempty"`

	// Timeout is the outer deadline in seconds for the entire operation
	// (both retrieval paths plus detection). Unset falls back to the
	// server-configured deadline (default 45s). Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}
