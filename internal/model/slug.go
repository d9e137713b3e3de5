package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// GenerateSlug derives a URL slug from an event title: accents are removed,
// the result is lowercased, characters other than letters, digits, '_',
// '-' and whitespace are dropped, and whitespace runs become '-'.
func GenerateSlug(title string) string {
	plain, _, err := transform.String(stripMarks, title)
	if err != nil {
		plain = title
	}
	plain = strings.ToLower(plain)

	var b strings.Builder
	b.Grow(len(plain))
	space := false
	for _, r := range plain {
		switch {
		case unicode.IsSpace(r):
			space = true
		case r == '-' || r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))):
			if space && b.Len() > 0 {
				b.WriteByte('-')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
