// Package sanitize normalizes AI completion text before it is stored or
// shown to users: markdown emphasis and heading markers are removed and
// whitespace is tidied.
package sanitize

import (
	"regexp"
	"strings"
)

// Emphasis requires non-space content flush against the markers, so a bare
// asterisk in prose ("2 * 3") is left alone. Single-underscore emphasis only
// counts at word boundaries: an underscore between word characters has no
// boundary, so snake_case identifiers survive.
var (
	boldStars         = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscores   = regexp.MustCompile(`__(.+?)__`)
	italicStars       = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	italicUnderscores = regexp.MustCompile(`\b_([^_\s](?:[^_\n]*[^_\s])?)_\b`)
	heading           = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	runsOfSpaces      = regexp.MustCompile(`[ \t]{2,}`)
	runsOfBlanks      = regexp.MustCompile(`\n{3,}`)
)

// Clean strips markdown decoration and normalizes whitespace. Cleaning an
// already clean string returns it unchanged: cleanOnce only ever shrinks its
// input, so iterating to a fixed point terminates and makes Clean
// idempotent.
func Clean(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = boldStars.ReplaceAllString(s, "$1")
	s = boldUnderscores.ReplaceAllString(s, "$1")
	s = italicStars.ReplaceAllString(s, "$1")
	s = italicUnderscores.ReplaceAllString(s, "$1")
	s = heading.ReplaceAllString(s, "")
	s = runsOfSpaces.ReplaceAllString(s, " ")
	s = runsOfBlanks.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
