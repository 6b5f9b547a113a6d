// Package dedupe decides whether an extracted candidate record refers to a
// case the run has already collected, using tiers of progressively looser
// matching.
package dedupe

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// NormalizeName canonicalizes a case name for keying and similarity:
// lower-cased, diacritics folded, punctuation dropped, whitespace
// collapsed. "Béliveau v. O'Neil" and "beliveau v oneil" normalize
// identically.
func NormalizeName(name string) string {
	name = foldDiacritics(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// KeyFor builds the second-tier lookup key: normalized name joined with
// the decision year, or with an empty year part when none is known.
func KeyFor(name string, year model.FlexInt) string {
	return NormalizeName(name) + "|" + yearPart(year)
}

func yearPart(year model.FlexInt) string {
	if !year.Valid {
		return ""
	}
	return strconv.Itoa(year.Value)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
