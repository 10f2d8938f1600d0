// Package slug derives URL-safe course identifiers.
// This package has NO dependencies on I/O.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps generated slugs.
const MaxLength = 80

// validRegex matches valid URL-friendly slugs.
var validRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// counterRegex captures a trailing collision counter. Counters are one or two
// digits so that "course-2024" or "leadership-101" keep their number.
var counterRegex = regexp.MustCompile(`^(.+)-([1-9][0-9]?)$`)

// Make creates a URL-friendly slug from free text.
// Accents are folded ("Café" -> "cafe"); anything else that is not a
// letter or digit becomes a separator.
// This is a PURE function.
func Make(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return validRegex.MatchString(s)
}

// Next derives the next candidate after a collision:
// "intro-3" -> "intro-4", "intro" -> "intro-2", "leadership-101" -> "leadership-101-2".
// Returns "" when s has no usable characters.
// This is a PURE function.
func Next(s string) string {
	s = Make(s)
	if s == "" {
		return ""
	}

	if m := counterRegex.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1] + "-" + strconv.Itoa(n+1)
	}
	return s + "-2"
}
