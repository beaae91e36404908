package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/riahunter/internal/domain"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed semantic text length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Weights scale each signal's reciprocal-rank contribution.
type Weights struct {
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Lexical  float64 `json:"lexical" yaml:"lexical"`
}

// DefaultWeights favour the semantic signal.
var DefaultWeights = Weights{Semantic: 0.7, Lexical: 0.3}

// Validate rejects negative, non-finite or all-zero weights.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Semantic, w.Lexical} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: weights must be finite and non-negative", domain.ErrInvalidRequest)
		}
	}
	if w.Semantic == 0 && w.Lexical == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", domain.ErrInvalidRequest)
	}
	return nil
}

// Params are the raw, caller-supplied search parameters.
// Nil Threshold and Weights defer to the service configuration.
type Params struct {
	Text      string
	Embedding []float32
	// SemanticErr records why the query embedding could not be computed.
	// The search then runs without the semantic signal and reports it degraded.
	SemanticErr error
	Filters     filter.Filters
	Limit       int
	Threshold   *float64
	Weights     *Weights
}

// Request is a validated search query.
type Request struct {
	text        string
	embedding   []float32
	semanticErr error
	filters     filter.Filters
	limit       int
	threshold   *float64
	weights     *Weights
}

// New validates and normalizes search parameters.
// A zero limit becomes DefaultLimit. A nil embedding disables the semantic
// signal; a non-nil one must have exactly dimensions components.
func New(p Params, dimensions int) (Request, error) {
	text := strings.TrimSpace(p.Text)
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: semantic_text too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	limit := p.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return Request{}, fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrInvalidRequest, MaxLimit, p.Limit)
	}

	if p.Embedding != nil {
		if dimensions > 0 && len(p.Embedding) != dimensions {
			return Request{}, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(p.Embedding), dimensions)
		}
		for i, v := range p.Embedding {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return Request{}, fmt.Errorf("%w: embedding[%d] is not finite", domain.ErrInvalidRequest, i)
			}
		}
	}

	var threshold *float64
	if p.Threshold != nil {
		t := *p.Threshold
		if math.IsNaN(t) || t < 0 || t > 1 {
			return Request{}, fmt.Errorf("%w: similarity_threshold must be between 0 and 1", domain.ErrInvalidRequest)
		}
		threshold = &t
	}

	var weights *Weights
	if p.Weights != nil {
		if err := p.Weights.Validate(); err != nil {
			return Request{}, err
		}
		w := *p.Weights
		weights = &w
	}

	var emb []float32
	if p.Embedding != nil && p.SemanticErr == nil {
		emb = make([]float32, len(p.Embedding))
		copy(emb, p.Embedding)
	}

	return Request{
		text:        text,
		embedding:   emb,
		semanticErr: p.SemanticErr,
		filters:     p.Filters,
		limit:       limit,
		threshold:   threshold,
		weights:     weights,
	}, nil
}

// Text returns the semantic query text, also used as the lexical query.
func (r *Request) Text() string { return r.text }

// Embedding returns the query vector (nil when absent).
func (r *Request) Embedding() []float32 { return r.embedding }

// HasEmbedding reports whether the semantic signal can run.
func (r *Request) HasEmbedding() bool { return len(r.embedding) > 0 }

// SemanticErr is the upstream embedding failure, or nil.
func (r *Request) SemanticErr() error { return r.semanticErr }

// Filters returns the structured filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Threshold returns the similarity floor, or def when the caller set none.
func (r *Request) Threshold(def float64) float64 {
	if r.threshold == nil {
		return def
	}
	return *r.threshold
}

// Weights returns the caller's weights, or def when the caller set none.
func (r *Request) Weights(def Weights) Weights {
	if r.weights == nil {
		return def
	}
	return *r.weights
}
