package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// Compiled once; these run on every page.
var (
	passwordSel   = cascadia.MustCompile(`input[type="password"]`)
	identifierSel = cascadia.MustCompile(`input[type="email"], input[type="text"], input[type="tel"]`)
	submitSel     = cascadia.MustCompile(`input[type="submit"], button`)
)

// Attribute keywords marking a text input as a credential identifier field.
var loginKeywords = []string{
	"email", "username", "user", "login", "account",
	"userid", "user_name", "user-name", "mail",
}

// Class/id keywords marking an ancestor as a login section, used to
// synthesize a boundary for formless (SPA) layouts.
var containerKeywords = []string{"login", "signin", "sign-in", "auth", "authentication"}

// How far up the tree to look for a login-like container.
const maxContainerDepth = 5

// detectTraditional finds username/password forms. Password inputs are the
// primary signal: no password input means not found, regardless of any
// other markup on the page.
func (d *Detector) detectTraditional(doc *goquery.Document) models.AuthComponent {
	passwords := doc.FindMatcher(passwordSel)
	if passwords.Length() == 0 {
		return emptyComponent()
	}

	indicators := newOrderedSet()
	indicators.add("password_input")

	var snippets []string
	passwords.Each(func(_ int, pwd *goquery.Selection) {
		boundary := pwd.Closest("form")
		if boundary.Length() == 0 {
			boundary = loginBoundary(pwd)
		}
		if boundary == nil || boundary.Length() == 0 {
			return
		}

		if hasIdentifierInput(boundary) {
			indicators.add("email_input")
		}
		if hasSubmitControl(boundary) {
			indicators.add("submit_button")
		}

		snippets = append(snippets, prettySnippet(boundary.Get(0), d.formSnippetMaxLen))
	})

	unique := dedupCap(snippets, d.maxFormSnippets)
	return models.AuthComponent{
		Found:        len(unique) > 0,
		HTMLSnippets: unique,
		Indicators:   indicators.list(),
	}
}

// loginBoundary synthesizes a virtual form boundary for a password input
// with no owning <form>: the nearest ancestor (up to maxContainerDepth
// levels) whose class/id looks login-related, else the direct parent.
func loginBoundary(pwd *goquery.Selection) *goquery.Selection {
	current := pwd.Parent()
	for depth := 0; depth < maxContainerDepth && current.Length() > 0; depth++ {
		combined := strings.ToLower(current.AttrOr("class", "") + " " + current.AttrOr("id", ""))
		for _, kw := range containerKeywords {
			if strings.Contains(combined, kw) {
				return current
			}
		}
		current = current.Parent()
	}
	if parent := pwd.Parent(); parent.Length() > 0 {
		return parent
	}
	return pwd
}

// hasIdentifierInput reports whether the boundary contains a companion
// email/username field. An input typed "email" qualifies on its own;
// text/tel inputs qualify only when their naming attributes carry a login
// keyword, to avoid counting search boxes and the like.
func hasIdentifierInput(boundary *goquery.Selection) bool {
	found := false
	boundary.FindMatcher(identifierSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("type", ""), "email") || isLoginInput(s) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isLoginInput(s *goquery.Selection) bool {
	combined := strings.ToLower(strings.Join([]string{
		s.AttrOr("name", ""),
		s.AttrOr("id", ""),
		s.AttrOr("placeholder", ""),
		s.AttrOr("aria-label", ""),
		s.AttrOr("autocomplete", ""),
	}, " "))
	for _, kw := range loginKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// hasSubmitControl reports whether the boundary contains a submit-capable
// control: an input[type=submit], or a button whose type is not "button"
// (an untyped button inside a form submits it).
func hasSubmitControl(boundary *goquery.Selection) bool {
	found := false
	boundary.FindMatcher(submitSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "button" {
			if strings.EqualFold(s.AttrOr("type", ""), "button") {
				return true
			}
		}
		found = true
		return false
	})
	return found
}
