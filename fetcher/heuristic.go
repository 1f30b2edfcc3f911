package fetcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var reNoscriptJS = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// Markers of client-side frameworks that typically render into an empty
// shell. Presence alone is only a weak signal; it is combined with the
// text-density check below.
var spaRootMarkers = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	`window.__nuxt`,
	`__next_data__`,
}

// InsufficientMarkup judges whether statically fetched markup is likely a
// JavaScript shell that needs a browser render before detection can work.
// minTextLength is the visible-body-text threshold in bytes.
func InsufficientMarkup(markup string, minTextLength int) bool {
	bodyText := visibleText(markup)

	// 1. Very little visible text in <body>: likely an SPA shell.
	if len(bodyText) < minTextLength {
		return true
	}

	lower := strings.ToLower(markup)

	// 2. Empty SPA root containers.
	for _, marker := range spaRootMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	// 3. <noscript> warnings that the page requires JavaScript.
	if reNoscriptJS.MatchString(lower) {
		return true
	}

	// 4. Many <script> tags with thin body text: JS-heavy page.
	if strings.Count(lower, "<script") > 10 && len(bodyText) < minTextLength*3 {
		return true
	}

	return false
}

// ExtractTitle finds the first <title> element's text in raw markup.
func ExtractTitle(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}

// visibleText extracts the visible text from within <body>, stripping all
// tags and script/style/noscript content. Heuristic use only.
func visibleText(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
