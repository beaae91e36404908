package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/riahunter/internal/domain"
	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
)

// Filters are the structured constraints of a search. The zero value admits everything.
type Filters struct {
	state           string
	minAUM          float64
	minFundActivity float64
	fundType        string
	families        *Families
}

// New validates and normalizes structured filters.
// Empty state/fundType and zero minimums mean "no constraint".
func New(state string, minAUM, minFundActivity float64, fundType string) (Filters, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state != "" && len(state) != 2 {
		return Filters{}, fmt.Errorf("%w: state must be a 2-letter code, got %q", domain.ErrInvalidRequest, state)
	}
	if minAUM < 0 || math.IsNaN(minAUM) || math.IsInf(minAUM, 0) {
		return Filters{}, fmt.Errorf("%w: min_aum must be a non-negative number", domain.ErrInvalidRequest)
	}
	if minFundActivity < 0 || math.IsNaN(minFundActivity) || math.IsInf(minFundActivity, 0) {
		return Filters{}, fmt.Errorf("%w: min_fund_activity must be a non-negative number", domain.ErrInvalidRequest)
	}
	return Filters{
		state:           state,
		minAUM:          minAUM,
		minFundActivity: minFundActivity,
		fundType:        strings.TrimSpace(fundType),
	}, nil
}

// WithFamilies returns a copy matching fund types against a custom family table.
func (f Filters) WithFamilies(families *Families) Filters {
	f.families = families
	return f
}

// State returns the upper-cased state code or "".
func (f Filters) State() string { return f.state }

// MinAUM returns the AUM floor (0 = none).
func (f Filters) MinAUM() float64 { return f.minAUM }

// MinFundActivity returns the fund count floor (0 = none).
func (f Filters) MinFundActivity() float64 { return f.minFundActivity }

// FundType returns the fund type filter or "".
func (f Filters) FundType() string { return f.fundType }

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.state == "" && f.minAUM == 0 && f.minFundActivity == 0 && f.fundType == ""
}

// Admissible reports whether a satisfies every constraint.
// Unknown AUM counts as 0, so any positive min_aum excludes it.
func (f Filters) Admissible(a *adviser.Adviser) bool {
	if f.state != "" && !strings.EqualFold(strings.TrimSpace(a.Location.State), f.state) {
		return false
	}
	if f.minAUM > 0 && a.AUM < f.minAUM {
		return false
	}
	if f.minFundActivity > 0 && float64(a.FundCount) < f.minFundActivity {
		return false
	}
	if f.fundType != "" && !f.matchesAnyFund(a.Funds) {
		return false
	}
	return true
}

func (f Filters) matchesAnyFund(funds []adviser.Fund) bool {
	families := f.families
	if families == nil {
		families = DefaultFamilies()
	}
	m := families.Matcher(f.fundType)
	for _, fund := range funds {
		if m.Match(fund.Type) {
			return true
		}
	}
	return false
}
