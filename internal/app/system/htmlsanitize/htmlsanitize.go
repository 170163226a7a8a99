// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Record bodies may carry a limited set of formatting HTML. Titles, names
// and other short fields are reduced to plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich  = richPolicy()
	plain = bluemonday.StrictPolicy()
)

func richPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")
	return p
}

// Sanitize keeps safe formatting HTML and drops scripts, event handlers,
// iframes and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(rich.Sanitize(s))
}

// PlainText strips every tag and returns unescaped text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(s)))
}
