package db

import "math"

// TagCondition requires a TAG field to equal Value.
type TagCondition struct {
	Field string
	Value string
}

// RangeCondition bounds a NUMERIC field to [Min, Max]; use math.Inf for open ends.
type RangeCondition struct {
	Field string
	Min   float64
	Max   float64
}

// AtLeast is a RangeCondition with no upper bound.
func AtLeast(field string, min float64) RangeCondition {
	return RangeCondition{Field: field, Min: min, Max: math.Inf(1)}
}

// Predicate is a conjunction of tag and numeric conditions pushed into FT.SEARCH.
type Predicate struct {
	Tags   []TagCondition
	Ranges []RangeCondition
}

// IsEmpty reports whether the predicate matches every document.
func (p Predicate) IsEmpty() bool {
	return len(p.Tags) == 0 && len(p.Ranges) == 0
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Where        Predicate
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 full-text search.
type TextQuery struct {
	IndexName    string
	TextField    string
	Where        Predicate
	Query        string
	Limit        int
	ReturnFields []string
}

// ListQuery pages through every document matching Where.
type ListQuery struct {
	IndexName    string
	Where        Predicate
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score is cosine similarity for KNN,
// BM25 for text queries and 0 for lists.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
