// Package detector locates and classifies authentication markup in
// rendered HTML. It is pure: the same markup always yields byte-identical
// results, and the input document is never mutated.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// Detector runs both sub-detectors over a parsed document.
type Detector struct {
	maxFormSnippets    int
	maxOAuthSnippets   int
	formSnippetMaxLen  int
	oauthSnippetMaxLen int
}

// New creates a Detector. Zero-valued config fields fall back to the
// documented defaults, so New(config.DetectorConfig{}) is usable in tests.
func New(cfg config.DetectorConfig) *Detector {
	d := &Detector{
		maxFormSnippets:    cfg.MaxFormSnippets,
		maxOAuthSnippets:   cfg.MaxOAuthSnippets,
		formSnippetMaxLen:  cfg.FormSnippetMaxLen,
		oauthSnippetMaxLen: cfg.OAuthSnippetMaxLen,
	}
	if d.maxFormSnippets <= 0 {
		d.maxFormSnippets = 3
	}
	if d.maxOAuthSnippets <= 0 {
		d.maxOAuthSnippets = 5
	}
	if d.formSnippetMaxLen <= 0 {
		d.formSnippetMaxLen = 500
	}
	if d.oauthSnippetMaxLen <= 0 {
		d.oauthSnippetMaxLen = 300
	}
	return d
}

// Detect runs both sub-detectors over the markup. Unparsable input
// degrades to empty evidence, never an error; "nothing found" is a valid
// result with Found=false.
func (d *Detector) Detect(markup string) *models.AuthComponents {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return &models.AuthComponents{
			TraditionalForm: emptyComponent(),
			OAuthButtons:    emptyOAuthComponent(),
		}
	}

	return &models.AuthComponents{
		TraditionalForm: d.detectTraditional(doc),
		OAuthButtons:    d.detectOAuth(doc),
	}
}

func emptyComponent() models.AuthComponent {
	return models.AuthComponent{
		Found:        false,
		HTMLSnippets: []string{},
		Indicators:   []string{},
	}
}

func emptyOAuthComponent() models.OAuthComponent {
	return models.OAuthComponent{
		Found:        false,
		Providers:    []string{},
		HTMLSnippets: []string{},
		Indicators:   []string{},
	}
}
