package detector

import "strings"

// Provider describes one OAuth/SSO identity provider. Matching logic is
// generic over this table; adding a provider means adding a row here.
type Provider struct {
	// Name is the canonical lowercase identifier reported to callers.
	Name string

	// Aliases are lowercase display names matched in element text, class,
	// id and similar attributes (only after an OAuth phrase matched).
	Aliases []string

	// Domains are authorization-host substrings matched in href/action
	// link targets.
	Domains []string
}

// Catalog is the fixed provider table, in reporting priority order.
var Catalog = []Provider{
	{
		Name:    "google",
		Aliases: []string{"google", "gmail"},
		Domains: []string{"accounts.google.com"},
	},
	{
		Name:    "microsoft",
		Aliases: []string{"microsoft", "outlook", "office365", "azure"},
		Domains: []string{"login.microsoftonline.com", "login.live.com"},
	},
	{
		Name:    "github",
		Aliases: []string{"github"},
		Domains: []string{"github.com/login/oauth"},
	},
	{
		Name:    "facebook",
		Aliases: []string{"facebook", "fb"},
		Domains: []string{"facebook.com/dialog/oauth"},
	},
	{
		Name:    "apple",
		Aliases: []string{"apple"},
		Domains: []string{"appleid.apple.com/auth"},
	},
	{
		Name:    "linkedin",
		Aliases: []string{"linkedin"},
		Domains: []string{"linkedin.com/oauth"},
	},
	{
		Name:    "twitter",
		Aliases: []string{"twitter", "x.com"},
		Domains: []string{"api.twitter.com/oauth", "twitter.com/i/oauth2", "x.com/i/oauth2"},
	},
	{
		Name:    "amazon",
		Aliases: []string{"amazon"},
		Domains: []string{"amazon.com/ap/oa"},
	},
}

// MatchAlias reports whether any display alias occurs in the given
// lowercased text blob.
func (p Provider) MatchAlias(combined string) bool {
	for _, a := range p.Aliases {
		if strings.Contains(combined, a) {
			return true
		}
	}
	return false
}

// MatchTarget reports whether any authorization-host substring occurs in
// the given lowercased link target (href/action).
func (p Provider) MatchTarget(target string) bool {
	for _, d := range p.Domains {
		if strings.Contains(target, d) {
			return true
		}
	}
	return false
}
