package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// Elements that can act as an OAuth entry point: real buttons and links,
// classed divs styled as buttons, and button-styled inputs.
var clickableSel = cascadia.MustCompile(`button, a, div[class], input[type="button"]`)

// Phrases that introduce a provider name in OAuth button copy.
var oauthPhrases = []string{
	"sign in with", "continue with", "log in with",
	"login with", "signup with", "sign up with",
}

// detectOAuth finds OAuth/SSO entry points. A provider matches either by
// button copy ("Continue with GitHub") or by an authorization-host
// substring in the element's link target; the reported provider set is the
// union of both, each provider recorded once per page.
func (d *Detector) detectOAuth(doc *goquery.Document) models.OAuthComponent {
	providers := newOrderedSet()
	indicators := newOrderedSet()
	var snippets []string

	doc.FindMatcher(clickableSel).Each(func(_ int, el *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(el.Text()))
		class := strings.ToLower(el.AttrOr("class", ""))
		id := strings.ToLower(el.AttrOr("id", ""))
		href := strings.ToLower(el.AttrOr("href", ""))
		action := strings.ToLower(el.AttrOr("action", ""))
		onclick := strings.ToLower(el.AttrOr("onclick", ""))

		combined := strings.Join([]string{text, class, id, href, onclick}, " ")

		matched := ""
		if containsAnyPhrase(combined) {
			for _, p := range Catalog {
				if p.MatchAlias(combined) {
					matched = p.Name
					break
				}
			}
		}
		if matched == "" {
			target := href + " " + action + " " + onclick
			if strings.TrimSpace(target) != "" {
				for _, p := range Catalog {
					if p.MatchTarget(target) {
						matched = p.Name
						break
					}
				}
			}
		}
		if matched == "" {
			return
		}

		providers.add(matched)
		indicators.add(matched + "_oauth")
		snippets = append(snippets, prettySnippet(el.Get(0), d.oauthSnippetMaxLen))
	})

	unique := dedupCap(snippets, d.maxOAuthSnippets)
	return models.OAuthComponent{
		Found:        len(providers.list()) > 0,
		Providers:    providers.list(),
		HTMLSnippets: unique,
		Indicators:   indicators.list(),
	}
}

func containsAnyPhrase(combined string) bool {
	for _, phrase := range oauthPhrases {
		if strings.Contains(combined, phrase) {
			return true
		}
	}
	return false
}
