package adviser

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// BuildNarrative assembles a plain-text summary from the structured profile.
// It is the lexical stand-in for advisers whose filing produced no narrative.
func BuildNarrative(a *Adviser) string {
	var parts []string

	if name := strings.TrimSpace(a.DisplayName); name != "" {
		parts = append(parts, name+" is a registered investment adviser")
	}

	var loc []string
	if c := strings.TrimSpace(a.Location.City); c != "" {
		loc = append(loc, c)
	}
	if s := strings.TrimSpace(a.Location.State); s != "" {
		loc = append(loc, strings.ToUpper(s))
	}
	if len(loc) > 0 {
		parts = append(parts, "located in "+strings.Join(loc, ", "))
	}

	if a.ID > 0 {
		parts = append(parts, fmt.Sprintf("with CRD number %d", a.ID))
	}

	if a.AUM > 0 {
		parts = append(parts, "managing "+FormatDollars(a.AUM)+" in assets")
	}

	if a.FundCount > 0 {
		funds := fmt.Sprintf("advising %d private fund", a.FundCount)
		if a.FundCount > 1 {
			funds += "s"
		}
		if a.FundAUM > 0 {
			funds += " with " + FormatDollars(a.FundAUM) + " in gross assets"
		}
		parts = append(parts, funds)
	}

	if types := distinctFundTypes(a.Funds); len(types) > 0 {
		parts = append(parts, "including "+strings.ToLower(strings.Join(types, ", "))+" funds")
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.ReplaceAll(strings.Join(parts, ". ")+".", "..", ".")
}

// FormatDollars renders an amount as "$1.2 billion", "$350.0 million" or "$12,500".
func FormatDollars(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%.1f billion", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1f million", v/1_000_000)
	default:
		return "$" + humanize.Comma(int64(v+0.5))
	}
}

func distinctFundTypes(funds []Fund) []string {
	seen := make(map[string]bool, len(funds))
	var out []string
	for _, f := range funds {
		t := strings.TrimSpace(f.Type)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
