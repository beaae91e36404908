package search

import (
	"sort"

	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
)

// fallbackFill picks up to need advisers from pool that are not in taken,
// ordered by aum descending (unknown aum is 0 and sorts last), then id ascending.
// pool must only contain admissible advisers.
func fallbackFill(pool []*adviser.Adviser, taken adviser.IDSet, need int) []*adviser.Adviser {
	if need <= 0 {
		return nil
	}

	rest := make([]*adviser.Adviser, 0, len(pool))
	for _, a := range pool {
		if !taken.Has(a.ID) {
			rest = append(rest, a)
		}
	}

	sort.Slice(rest, func(i, j int) bool {
		if rest[i].AUM != rest[j].AUM {
			return rest[i].AUM > rest[j].AUM
		}
		return rest[i].ID < rest[j].ID
	})

	if len(rest) > need {
		rest = rest[:need]
	}
	return rest
}
