// Package urlutil normalizes and validates user-supplied target URLs.
package urlutil

import (
	"net/url"
	"strings"

	"github.com/sreekar9601/getcovered-technical-task/models"
)

// Normalize trims the raw URL, defaults a missing scheme to https, and
// validates that the result is an absolute http/https URL with a host.
// Returns an INVALID_URL DetectError otherwise.
func Normalize(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", models.NewDetectError(models.ErrCodeInvalidURL, "URL cannot be empty", nil)
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", models.NewDetectError(models.ErrCodeInvalidURL, "URL is not well-formed", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", models.NewDetectError(models.ErrCodeInvalidURL, "URL scheme must be http or https", nil)
	}
	if u.Host == "" {
		return "", models.NewDetectError(models.ErrCodeInvalidURL, "URL has no host", nil)
	}
	// Hostname must contain at least a dot, or be localhost / an IP-ish
	// form, to reject bare words like "notaurl".
	host := u.Hostname()
	if !strings.Contains(host, ".") && !strings.EqualFold(host, "localhost") {
		return "", models.NewDetectError(models.ErrCodeInvalidURL, "URL host is not a valid domain", nil)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return u.String(), nil
}
