package adviser

import (
	"strings"
	"testing"
)

func TestBuildNarrative_Full(t *testing.T) {
	a := Adviser{
		ID:          12345,
		DisplayName: "Gateway Capital",
		Location:    Location{City: "St. Louis", State: "mo"},
		AUM:         1_250_000_000,
		FundCount:   2,
		FundAUM:     350_000_000,
		Funds: []Fund{
			{ID: "a", Type: "Venture Capital"},
			{ID: "b", Type: "venture capital"},
		},
	}

	got := BuildNarrative(&a)
	for _, want := range []string{
		"Gateway Capital is a registered investment adviser",
		"located in St. Louis, MO",
		"with CRD number 12345",
		"managing $1.2 billion in assets",
		"advising 2 private funds with $350.0 million in gross assets",
		"including venture capital funds",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("narrative %q missing %q", got, want)
		}
	}
	if !strings.HasSuffix(got, ".") || strings.Contains(got, "..") {
		t.Errorf("narrative punctuation wrong: %q", got)
	}
}

func TestBuildNarrative_Empty(t *testing.T) {
	if got := BuildNarrative(&Adviser{}); got != "" {
		t.Errorf("expected empty narrative, got %q", got)
	}
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2_500_000_000, "$2.5 billion"},
		{1_000_000, "$1.0 million"},
		{12_500, "$12,500"},
		{0, "$0"},
	}
	for _, tc := range tests {
		if got := FormatDollars(tc.in); got != tc.want {
			t.Errorf("FormatDollars(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
