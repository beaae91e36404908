package filter

import (
	"strings"
	"unicode"
)

// shortKeywordLen is the longest keyword that must match a whole word.
// Longer keywords also match word prefixes ("venture" matches "ventures").
const shortKeywordLen = 3

// Family is a fund-type category and the keywords that identify it in free text.
type Family struct {
	Name     string
	Keywords []string
}

// Families is the keyword-family table used for fuzzy fund-type matching.
type Families struct {
	byName map[string]Family
	order  []string
}

// NewFamilies builds a table. Names and keywords are normalized (lowercased, punctuation dropped).
func NewFamilies(families ...Family) *Families {
	t := &Families{byName: make(map[string]Family, len(families))}
	for _, fam := range families {
		name := normalizeFundText(fam.Name)
		kws := make([]string, 0, len(fam.Keywords)+1)
		kws = append(kws, name)
		for _, kw := range fam.Keywords {
			if n := normalizeFundText(kw); n != "" && n != name {
				kws = append(kws, n)
			}
		}
		if _, dup := t.byName[name]; !dup {
			t.order = append(t.order, name)
		}
		t.byName[name] = Family{Name: name, Keywords: kws}
	}
	return t
}

var defaultFamilies = NewFamilies(
	Family{Name: "venture capital", Keywords: []string{"vc", "venture"}},
	Family{Name: "private equity", Keywords: []string{"pe", "buyout", "lbo"}},
	Family{Name: "hedge", Keywords: []string{"hedge fund", "long short", "macro"}},
	Family{Name: "real estate", Keywords: []string{"reit", "property", "realty"}},
	Family{Name: "credit", Keywords: []string{"debt", "lending", "loan"}},
	Family{Name: "fund of funds", Keywords: []string{"fof"}},
)

// DefaultFamilies returns the built-in keyword-family table.
func DefaultFamilies() *Families { return defaultFamilies }

// Lookup returns the family a filter value names, either by family name or by one of its keywords.
func (t *Families) Lookup(filterValue string) (Family, bool) {
	v := normalizeFundText(filterValue)
	if fam, ok := t.byName[v]; ok {
		return fam, true
	}
	for _, name := range t.order {
		fam := t.byName[name]
		for _, kw := range fam.Keywords {
			if kw == v {
				return fam, true
			}
		}
	}
	return Family{}, false
}

// Matcher compiles a fund-type filter value.
func (t *Families) Matcher(filterValue string) Matcher {
	if fam, ok := t.Lookup(filterValue); ok {
		return Matcher{keywords: fam.Keywords}
	}
	return Matcher{substring: strings.ToLower(strings.TrimSpace(filterValue))}
}

// Matcher tests fund type text against one compiled filter value.
// Family filters match by keyword, anything else by case-insensitive substring.
type Matcher struct {
	keywords  []string
	substring string
}

// Match reports whether fundType satisfies the filter.
func (m Matcher) Match(fundType string) bool {
	if m.keywords == nil {
		return m.substring != "" && strings.Contains(strings.ToLower(fundType), m.substring)
	}
	text := " " + normalizeFundText(fundType) + " "
	for _, kw := range m.keywords {
		if len(kw) <= shortKeywordLen {
			if strings.Contains(text, " "+kw+" ") {
				return true
			}
			continue
		}
		if strings.Contains(text, " "+kw) {
			return true
		}
	}
	return false
}

// normalizeFundText lowercases and collapses punctuation to single spaces.
func normalizeFundText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
