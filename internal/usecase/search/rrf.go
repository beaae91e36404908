package search

import (
	"sort"

	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/request"
)

// DefaultRRFK is the Reciprocal Rank Fusion smoothing constant (Cormack et al. 2009).
const DefaultRRFK = 60

// Fusion merges the semantic and lexical rankings by weighted Reciprocal Rank Fusion:
// score(d) = w_sem/(K + r_sem(d)) + w_lex/(K + r_lex(d)), ranks 1-based,
// a list in which d is absent contributes nothing.
type Fusion struct {
	K       int
	Weights request.Weights
}

// Fused is one entry of the combined ranking.
type Fused struct {
	ID           adviser.ID
	Score        float64
	FromSemantic bool
	FromLexical  bool
}

// Fuse combines two ranked id lists. Entries scoring 0 are dropped.
// Equal scores order by aum descending, then id ascending; aum may be nil.
func (f Fusion) Fuse(semantic, lexical []adviser.ID, aum func(adviser.ID) float64) []Fused {
	k := f.K
	if k <= 0 {
		k = DefaultRRFK
	}

	merged := make(map[adviser.ID]*Fused, len(semantic)+len(lexical))
	order := make([]adviser.ID, 0, len(semantic)+len(lexical))

	add := func(ids []adviser.ID, w float64, lexical bool) {
		if w <= 0 {
			return
		}
		seen := make(map[adviser.ID]struct{}, len(ids))
		for i, id := range ids {
			// a repeated id keeps its first rank
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			e, ok := merged[id]
			if !ok {
				e = &Fused{ID: id}
				merged[id] = e
				order = append(order, id)
			}
			e.Score += w / float64(k+i+1)
			if lexical {
				e.FromLexical = true
			} else {
				e.FromSemantic = true
			}
		}
	}
	add(semantic, f.Weights.Semantic, false)
	add(lexical, f.Weights.Lexical, true)

	out := make([]Fused, 0, len(merged))
	for _, id := range order {
		if e := merged[id]; e.Score > 0 {
			out = append(out, *e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if aum != nil {
			ai, aj := aum(out[i].ID), aum(out[j].ID)
			if ai != aj {
				return ai > aj
			}
		}
		return out[i].ID < out[j].ID
	})
	return out
}
