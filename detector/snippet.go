package detector

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Tags never closed with an end tag.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "source": {},
	"track": {}, "wbr": {},
}

// prettySnippet serializes a node's outer HTML with two-space indentation,
// omitting script/style/noscript subtrees and comments, and truncates the
// result to maxLen. The input tree is never mutated.
func prettySnippet(n *html.Node, maxLen int) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n, 0)
	s := strings.TrimRight(b.String(), "\n")
	if maxLen > 3 && len(s) > maxLen {
		// Cut back to a rune boundary so the snippet stays valid UTF-8.
		cut := maxLen - 3
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func writeNode(b *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			writeIndent(b, depth)
			b.WriteString(html.EscapeString(text))
			b.WriteByte('\n')
		}
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if tag == "script" || tag == "style" || tag == "noscript" {
			return
		}
		writeIndent(b, depth)
		b.WriteByte('<')
		b.WriteString(tag)
		for _, a := range n.Attr {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Val))
			b.WriteByte('"')
		}
		b.WriteString(">\n")
		if _, void := voidElements[tag]; void {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c, depth+1)
		}
		writeIndent(b, depth)
		b.WriteString("</")
		b.WriteString(tag)
		b.WriteString(">\n")
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c, depth)
		}
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

// dedupCap removes byte-identical entries while preserving first-seen
// order, then caps the list at max entries.
func dedupCap(snippets []string, max int) []string {
	seen := make(map[string]struct{}, len(snippets))
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

// orderedSet collects strings uniquely in first-seen order. Detection
// output must be byte-identical across runs, so map iteration is never
// used for anything that reaches the result.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) list() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}
