package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

// mockCatalog implements Catalog for tests.
type mockCatalog struct {
	advisers     []adviser.Adviser
	candidatesFn func(ctx context.Context, f filter.Filters) ([]adviser.Adviser, error)
}

func (m *mockCatalog) Candidates(ctx context.Context, f filter.Filters) ([]adviser.Adviser, error) {
	if m.candidatesFn != nil {
		return m.candidatesFn(ctx, f)
	}
	out := make([]adviser.Adviser, len(m.advisers))
	copy(out, m.advisers)
	return out, nil
}

// mockVectors implements VectorStore for tests.
type mockVectors struct {
	nearestFn func(ctx context.Context, q signal.VectorQuery) ([]signal.Hit, error)
	calls     int
	mu        sync.Mutex
}

func (m *mockVectors) Nearest(ctx context.Context, q signal.VectorQuery) ([]signal.Hit, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.nearestFn != nil {
		return m.nearestFn(ctx, q)
	}
	return nil, nil
}

// mockLexical implements LexicalIndex for tests.
type mockLexical struct {
	searchFn func(ctx context.Context, q signal.TextQuery) ([]signal.Hit, error)
	calls    int
	mu       sync.Mutex
}

func (m *mockLexical) Search(ctx context.Context, q signal.TextQuery) ([]signal.Hit, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, nil
}

// mockRecorder captures metric events.
type mockRecorder struct {
	mu       sync.Mutex
	failures []string
	outcomes []string
	fallback int
}

func (m *mockRecorder) RetrievalFailed(kind signal.Kind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, string(kind)+"/"+reason)
}

func (m *mockRecorder) SearchCompleted(outcome string, _ time.Duration, _, fallback int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	m.fallback += fallback
}

func hits(pairs ...any) []signal.Hit {
	out := make([]signal.Hit, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, signal.Hit{ID: adviser.ID(pairs[i].(int)), Score: pairs[i+1].(float64)})
	}
	return out
}

func ids(in ...int) []adviser.ID {
	out := make([]adviser.ID, len(in))
	for i, v := range in {
		out[i] = adviser.ID(v)
	}
	return out
}

func moAdviser(id int, aum float64) adviser.Adviser {
	return adviser.Adviser{
		ID:          adviser.ID(id),
		DisplayName: "Adviser",
		Location:    adviser.Location{City: "St. Louis", State: "MO"},
		AUM:         aum,
	}
}

// blockUntilDone waits for ctx cancellation, simulating a hung backend.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
