// Package signal describes the two retrieval signals fused by hybrid search
// and the queries and hits exchanged with their backends.
package signal

import (
	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
)

// Kind names a retrieval signal.
type Kind string

// Retrieval signals.
const (
	Semantic Kind = "semantic"
	Lexical  Kind = "lexical"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Semantic || k == Lexical
}

// Hit is one ranked candidate from a retrieval backend.
// Score is cosine similarity for Semantic and backend relevance for Lexical.
type Hit struct {
	ID    adviser.ID
	Score float64
}

// VectorQuery asks for the TopN nearest neighbours of Embedding among Within.
// Filters describe Within so a backend can push them into its own predicate;
// hits outside Within are dropped by the caller either way.
type VectorQuery struct {
	Embedding []float32
	Within    adviser.IDSet
	Filters   filter.Filters
	TopN      int
}

// TextQuery asks for the TopN lexical matches of Text among Within.
type TextQuery struct {
	Text    string
	Within  adviser.IDSet
	Filters filter.Filters
	TopN    int
}
