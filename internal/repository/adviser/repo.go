// Package adviser stores advisers as Redis hashes under one FT index that
// serves as entity catalog, vector store and lexical index at once.
package adviser

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/riahunter/internal/db"
	"github.com/kailas-cloud/riahunter/internal/domain"
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

const (
	// DefaultIndexName is the FT index over adviser hashes.
	DefaultIndexName = "riahunter:advisers:idx"

	listPageSize = 1000
	upsertBatch  = 500
	// fundTypeOverfetch widens KNN and BM25 when fund_type cannot be pushed down.
	fundTypeOverfetch = 4
)

// store is the consumer interface for advisers (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo implements the search Catalog, VectorStore and LexicalIndex over Redis.
type Repo struct {
	store      store
	indexName  string
	dimensions int
}

// New creates an adviser repository. An empty indexName selects DefaultIndexName.
func New(s store, indexName string, dimensions int) *Repo {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &Repo{store: s, indexName: indexName, dimensions: dimensions}
}

// IndexDefinition returns the FT schema for adviser hashes.
func (r *Repo) IndexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(r.indexName).
		Prefix(keyPrefix()).
		Tag(fieldState).
		Numeric(fieldAUM).
		Numeric(fieldFundCount).
		Numeric(fieldID).
		Text(fieldContent, 0).
		Vector(fieldVector, r.dimensions, db.VectorHNSW, db.DistanceCosine).
		Build()
}

// EnsureIndex creates the FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := r.IndexDefinition()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// IndexReady reports an error unless the FT index exists.
func (r *Repo) IndexReady(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("index info: %w", err)
	}
	if !ok {
		return fmt.Errorf("index %s: %w", r.indexName, db.ErrIndexNotFound)
	}
	return nil
}

// Upsert validates and writes advisers in pipelined batches.
func (r *Repo) Upsert(ctx context.Context, advisers []domadv.Adviser) error {
	items := make([]db.HashSetItem, 0, min(len(advisers), upsertBatch))
	flush := func() error {
		if len(items) == 0 {
			return nil
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("hset advisers: %w", err)
		}
		items = items[:0]
		return nil
	}

	for i := range advisers {
		a := &advisers[i]
		if err := a.Validate(r.dimensions); err != nil {
			return err
		}
		fields, err := buildHashFields(a)
		if err != nil {
			return err
		}
		items = append(items, db.HashSetItem{Key: adviserKey(a.ID), Fields: fields})
		if len(items) == upsertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Get returns one adviser or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id domadv.ID) (domadv.Adviser, error) {
	m, err := r.store.HGetAll(ctx, adviserKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domadv.Adviser{}, fmt.Errorf("adviser %d: %w", id, domain.ErrNotFound)
		}
		return domadv.Adviser{}, fmt.Errorf("hgetall adviser %d: %w", id, err)
	}
	return parseHashFields(m)
}

// Candidates pages through every adviser matching the pushed-down part of f
// (state, min AUM, min fund count). Fund type is left to the caller.
func (r *Repo) Candidates(ctx context.Context, f filter.Filters) ([]domadv.Adviser, error) {
	where := predicate(f)
	var out []domadv.Adviser

	for offset := 0; ; offset += listPageSize {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.indexName,
			Where:        where,
			Offset:       offset,
			Limit:        listPageSize,
			ReturnFields: catalogFields,
		})
		if err != nil {
			return nil, fmt.Errorf("list advisers: %w", err)
		}
		for i := range res.Entries {
			a, err := parseHashFields(res.Entries[i].Fields)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", res.Entries[i].Key, err)
			}
			out = append(out, a)
		}
		if len(res.Entries) < listPageSize || offset+listPageSize >= res.Total {
			return out, nil
		}
	}
}

// Nearest runs a filtered KNN query. Advisers without an embedding have no
// vector field and are never returned.
func (r *Repo) Nearest(ctx context.Context, q signal.VectorQuery) ([]signal.Hit, error) {
	if r.dimensions > 0 && len(q.Embedding) != r.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(q.Embedding), r.dimensions)
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  fieldVector,
		Where:        predicate(q.Filters),
		Vector:       q.Embedding,
		K:            overfetch(q.TopN, q.Filters),
		ReturnFields: []string{fieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	return toHits(res, q.Within, q.TopN), nil
}

// Search runs a BM25 query over the searchable text, matching any term.
// Place abbreviations in the query are expanded the same way as at index time.
func (r *Repo) Search(ctx context.Context, q signal.TextQuery) ([]signal.Hit, error) {
	text := domadv.NormalizePlaceText(q.Text)
	if text == "" {
		return nil, nil
	}
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		TextField:    fieldContent,
		Where:        predicate(q.Filters),
		Query:        text,
		Limit:        overfetch(q.TopN, q.Filters),
		ReturnFields: []string{fieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return toHits(res, q.Within, q.TopN), nil
}

// predicate pushes the index-expressible clauses of f into FT.SEARCH.
func predicate(f filter.Filters) db.Predicate {
	var p db.Predicate
	if f.State() != "" {
		p.Tags = append(p.Tags, db.TagCondition{Field: fieldState, Value: f.State()})
	}
	if f.MinAUM() > 0 {
		p.Ranges = append(p.Ranges, db.AtLeast(fieldAUM, f.MinAUM()))
	}
	if f.MinFundActivity() > 0 {
		p.Ranges = append(p.Ranges, db.AtLeast(fieldFundCount, f.MinFundActivity()))
	}
	return p
}

func overfetch(topN int, f filter.Filters) int {
	if f.FundType() != "" {
		return topN * fundTypeOverfetch
	}
	return topN
}

// toHits keeps entries inside within, in server order, up to topN.
func toHits(res *db.SearchResult, within domadv.IDSet, topN int) []signal.Hit {
	hits := make([]signal.Hit, 0, min(len(res.Entries), topN))
	for i := range res.Entries {
		id, ok := entryID(&res.Entries[i])
		if !ok || (within != nil && !within.Has(id)) {
			continue
		}
		hits = append(hits, signal.Hit{ID: id, Score: res.Entries[i].Score})
		if len(hits) == topN {
			break
		}
	}
	return hits
}
