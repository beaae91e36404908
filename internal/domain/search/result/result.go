package result

import (
	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

// Provenance records which stage placed an adviser in the results.
// A fallback result is never also semantic or lexical.
type Provenance struct {
	FromSemantic bool `json:"from_semantic"`
	FromLexical  bool `json:"from_lexical"`
	FromFallback bool `json:"from_fallback"`
}

// Result is a single ranked adviser.
type Result struct {
	adviser    adviser.Adviser
	score      float64
	provenance Provenance
}

// New creates a search result.
func New(a adviser.Adviser, score float64, p Provenance) Result {
	return Result{adviser: a, score: score, provenance: p}
}

// ID returns the adviser identifier.
func (r *Result) ID() adviser.ID { return r.adviser.ID }

// Adviser returns the joined catalog record.
func (r *Result) Adviser() adviser.Adviser { return r.adviser }

// Score returns the fused score. Fallback results score exactly 0.
func (r *Result) Score() float64 { return r.score }

// Provenance returns the per-result provenance tags.
func (r *Result) Provenance() Provenance { return r.provenance }

// Response is the outcome of one search.
type Response struct {
	results         []Result
	totalConsidered int
	degraded        []signal.Kind
}

// NewResponse creates a search response.
// totalConsidered is the size of the admissible set, not len(results).
func NewResponse(results []Result, totalConsidered int, degraded []signal.Kind) Response {
	return Response{results: results, totalConsidered: totalConsidered, degraded: degraded}
}

// Results returns the ordered results.
func (r *Response) Results() []Result { return r.results }

// TotalConsidered returns the admissible set size.
func (r *Response) TotalConsidered() int { return r.totalConsidered }

// Degraded lists signals that failed or timed out.
func (r *Response) Degraded() []signal.Kind { return r.degraded }

// IsDegraded reports whether any signal was lost.
func (r *Response) IsDegraded() bool { return len(r.degraded) > 0 }

// FallbackCount counts results appended by the AUM fallback.
func (r *Response) FallbackCount() int {
	n := 0
	for i := range r.results {
		if r.results[i].provenance.FromFallback {
			n++
		}
	}
	return n
}
