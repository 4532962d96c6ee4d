package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// RemoveAccents strips diacritics, ex. "Crédito Imobiliário" -> "Credito Imobiliario".
func RemoveAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// NormalizeName lowercases, removes accents and collapses whitespace so names
// published with different spelling conventions compare equal.
func NormalizeName(name string) string {
	name = RemoveAccents(name)
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// Digits keeps only the ascii digits of `text`.
func Digits(text string) string {
	var out strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			out.WriteRune(r)
		}
	}
	return out.String()
}
