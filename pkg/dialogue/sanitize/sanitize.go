// Package sanitize normalizes raw user text before it is embedded
// into any model prompt.
package sanitize

import (
	"strings"
	"unicode"
)

// MaxLength caps sanitized input so a single message cannot blow up
// prompt size.
const MaxLength = 500

// promptDelimiters are characters that commonly act as template or
// instruction delimiters inside prompts.
var promptDelimiters = map[rune]bool{
	'{': true,
	'}': true,
	'<': true,
	'>': true,
	'`': true,
	'[': true,
	']': true,
}

// Sanitize strips prompt-delimiter characters, collapses all whitespace
// runs to single spaces, trims, and truncates to MaxLength runes.
// It never fails; garbage input yields an empty string.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := true // leading whitespace is dropped
	for _, r := range raw {
		if promptDelimiters[r] {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	out := strings.TrimSpace(b.String())

	runes := []rune(out)
	if len(runes) > MaxLength {
		out = strings.TrimSpace(string(runes[:MaxLength]))
	}

	return out
}
