package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/kailas-cloud/riahunter/internal/domain"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

// Nearest scores every embedded adviser in q.Within by cosine similarity
// and returns the best q.TopN, ties broken by id.
func (s *Store) Nearest(ctx context.Context, q signal.VectorQuery) ([]signal.Hit, error) {
	if s.dimensions > 0 && len(q.Embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(q.Embedding), s.dimensions)
	}
	if q.TopN <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	qnorm := math.Sqrt(float64(vek32.Dot(q.Embedding, q.Embedding)))
	if qnorm == 0 {
		return nil, nil
	}

	capacity := len(s.vectors)
	if q.Within != nil {
		capacity = min(capacity, q.Within.Len())
	}
	hits := make([]signal.Hit, 0, capacity)
	for i := range s.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &s.vectors[i]
		if q.Within != nil && !q.Within.Has(e.id) {
			continue
		}
		sim := float64(vek32.Dot(q.Embedding, e.vec)) / (qnorm * e.norm)
		hits = append(hits, signal.Hit{ID: e.id, Score: sim})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > q.TopN {
		hits = hits[:q.TopN]
	}
	return hits, nil
}
