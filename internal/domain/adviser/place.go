package adviser

import (
	"strings"
	"unicode"
)

// placeAbbreviations expands the leading-word abbreviations filings use
// interchangeably ("St. Louis", "St Louis", "Saint Louis").
var placeAbbreviations = map[string]string{
	"st":  "saint",
	"ste": "sainte",
	"ft":  "fort",
	"mt":  "mount",
}

// CityKey returns a spelling-insensitive key for a city name.
// "St. Louis", "St Louis", "Saint Louis" and "SAINTLOUIS" all map to "saintlouis".
func CityKey(city string) string {
	return strings.Join(placeWords(city), "")
}

// SameCity reports whether two filed city names denote the same place.
func SameCity(a, b string) bool {
	return CityKey(a) == CityKey(b)
}

// NormalizePlaceText lowercases free text, drops punctuation and expands
// place abbreviations word by word. Lexical indexes apply it to both the
// indexed fields and the query so city spellings match each other.
func NormalizePlaceText(text string) string {
	return strings.Join(placeWords(text), " ")
}

func placeWords(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		if full, ok := placeAbbreviations[w]; ok {
			words[i] = full
		}
	}
	return words
}

// SearchableText is the document both lexical backends index for a: name,
// city as filed plus its normalized spelling, state, narrative and fund types.
func SearchableText(a *Adviser) string {
	parts := []string{a.DisplayName, a.Location.City, NormalizePlaceText(a.Location.City), a.Location.State}
	if text := a.NarrativeText(); text != "" {
		parts = append(parts, text)
	} else {
		parts = append(parts, BuildNarrative(a))
	}
	parts = append(parts, a.FundTypes()...)

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
