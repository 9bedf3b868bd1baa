// Package normalize canonicalizes user-supplied strings before they are
// validated or stored.
package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// Email trims surrounding space and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding space and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Slug derives a workspace slug from a display name: lowercase, with each
// space replaced by a hyphen. A supplied non-empty slug always wins over a
// derived one; see SlugFor.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// SlugFor returns explicit when it is non-empty after trimming, otherwise
// the slug derived from name.
func SlugFor(name, explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return Slug(strings.TrimSpace(name))
}

// Role parses a role in any letter case. Unknown values return "".
func Role(s string) models.Role {
	r, ok := models.ParseRole(s)
	if !ok {
		return ""
	}
	return r
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
