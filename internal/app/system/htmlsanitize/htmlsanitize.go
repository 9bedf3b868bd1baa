// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Descriptions may carry light formatting from the board's rich-text editor,
// so Sanitize keeps safe markup (bluemonday's UGC policy). Titles and names
// are rendered as plain text, so PlainText strips every tag.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize removes scripts, event handlers, iframes and other unsafe markup
// while keeping basic formatting.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText strips all markup and trims surrounding space. Entities are
// decoded again so "R&D" stays "R&D" in JSON responses.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
