package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

// Catalog is the entity catalog. Candidates may return a superset of the
// advisers admitted by f; the service re-applies the predicate itself.
type Catalog interface {
	Candidates(ctx context.Context, f filter.Filters) ([]adviser.Adviser, error)
}

// VectorStore ranks embedded advisers by cosine similarity, best first.
type VectorStore interface {
	Nearest(ctx context.Context, q signal.VectorQuery) ([]signal.Hit, error)
}

// LexicalIndex ranks advisers by keyword relevance, best first.
type LexicalIndex interface {
	Search(ctx context.Context, q signal.TextQuery) ([]signal.Hit, error)
}

// Recorder receives search outcomes for metrics.
type Recorder interface {
	RetrievalFailed(kind signal.Kind, reason string)
	SearchCompleted(outcome string, elapsed time.Duration, returned, fallback int)
}

type nopRecorder struct{}

func (nopRecorder) RetrievalFailed(signal.Kind, string) {}
func (nopRecorder) SearchCompleted(string, time.Duration, int, int) {}
