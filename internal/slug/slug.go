// Package slug turns titles into URL-safe tokens.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make converts text into a lowercase token of [a-z0-9] runs joined by "-".
// Accents are stripped, so "Eldén  Ring!" and "elden ring" share the token
// "elden-ring". Make is total and idempotent.
func Make(text string) string {
	if text == "" {
		return ""
	}
	// A fresh chain per call: transform.Chain keeps state and is not safe
	// for concurrent use.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(stripMarks, text)
	if err != nil {
		s = text
	}
	s = strings.TrimSpace(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Matches reports whether token is the slug of title.
func Matches(title, token string) bool {
	return token != "" && Make(title) == token
}
