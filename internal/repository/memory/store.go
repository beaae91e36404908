// Package memory serves the adviser catalog from an immutable in-process
// snapshot: brute-force cosine search with vek and a bleve full-text index.
// It backs the memory database driver and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/viterin/vek/vek32"

	"github.com/kailas-cloud/riahunter/internal/domain"
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
)

type embedded struct {
	id   domadv.ID
	vec  []float32
	norm float64
}

// Store is a read-only snapshot. It is safe for concurrent use.
type Store struct {
	advisers   []domadv.Adviser
	byID       map[domadv.ID]int
	vectors    []embedded
	dimensions int
	text       bleve.Index
}

// New validates advisers and builds the snapshot. Later records replace
// earlier ones with the same id. dimensions <= 0 accepts any width.
func New(advisers []domadv.Adviser, dimensions int) (*Store, error) {
	s := &Store{
		byID:       make(map[domadv.ID]int, len(advisers)),
		dimensions: dimensions,
	}
	for i := range advisers {
		a := advisers[i]
		if err := a.Validate(dimensions); err != nil {
			return nil, err
		}
		if at, ok := s.byID[a.ID]; ok {
			s.advisers[at] = a
			continue
		}
		s.byID[a.ID] = len(s.advisers)
		s.advisers = append(s.advisers, a)
	}
	sort.Slice(s.advisers, func(i, j int) bool { return s.advisers[i].ID < s.advisers[j].ID })
	for i := range s.advisers {
		a := &s.advisers[i]
		s.byID[a.ID] = i
		if !a.HasEmbedding() {
			continue
		}
		vec := a.Embedding()
		if s.dimensions <= 0 {
			s.dimensions = len(vec)
		} else if len(vec) != s.dimensions {
			return nil, fmt.Errorf("adviser %d: %w", a.ID, domain.ErrVectorDimMismatch)
		}
		norm := math.Sqrt(float64(vek32.Dot(vec, vec)))
		if norm == 0 {
			continue
		}
		s.vectors = append(s.vectors, embedded{id: a.ID, vec: vec, norm: norm})
	}

	idx, err := buildTextIndex(s.advisers)
	if err != nil {
		return nil, err
	}
	s.text = idx
	return s, nil
}

// Close releases the text index.
func (s *Store) Close() error {
	return s.text.Close()
}

// Len returns the number of advisers in the snapshot.
func (s *Store) Len() int { return len(s.advisers) }

// Ping always succeeds; the snapshot cannot become unavailable.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Candidates returns the advisers admitted by f, in id order.
func (s *Store) Candidates(ctx context.Context, f filter.Filters) ([]domadv.Adviser, error) {
	out := make([]domadv.Adviser, 0, len(s.advisers))
	for i := range s.advisers {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if f.Admissible(&s.advisers[i]) {
			out = append(out, s.advisers[i])
		}
	}
	return out, nil
}

// Get returns one adviser or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, id domadv.ID) (domadv.Adviser, error) {
	i, ok := s.byID[id]
	if !ok {
		return domadv.Adviser{}, fmt.Errorf("adviser %d: %w", id, domain.ErrNotFound)
	}
	return s.advisers[i], nil
}
