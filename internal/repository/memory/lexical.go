package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

const contentField = "content"

type textDoc struct {
	Content string `json:"content"`
}

func buildTextIndex(advisers []domadv.Adviser) (bleve.Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create text index: %w", err)
	}
	batch := idx.NewBatch()
	for i := range advisers {
		a := &advisers[i]
		doc := textDoc{Content: domadv.SearchableText(a)}
		if err := batch.Index(docID(a.ID), doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index adviser %d: %w", a.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return idx, nil
}

// docID zero-pads so bleve's string _id sort agrees with numeric id order.
// Adviser ids are positive, so 19 digits cover the int64 range.
func docID(id domadv.ID) string { return fmt.Sprintf("%019d", int64(id)) }

// Search matches any term of the place-normalized query text, restricted to
// q.Within, ordered by relevance then id.
func (s *Store) Search(ctx context.Context, q signal.TextQuery) ([]signal.Hit, error) {
	text := domadv.NormalizePlaceText(q.Text)
	if text == "" || q.TopN <= 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(text)
	match.SetField(contentField)
	match.SetOperator(query.MatchQueryOperatorOr)

	var qry query.Query = match
	if q.Within != nil && q.Within.Len() < len(s.advisers) {
		ids := make([]string, 0, q.Within.Len())
		for _, id := range q.Within.Sorted() {
			ids = append(ids, docID(id))
		}
		qry = bleve.NewConjunctionQuery(match, bleve.NewDocIDQuery(ids))
	}

	req := bleve.NewSearchRequestOptions(qry, q.TopN, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := s.text.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]signal.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, signal.Hit{ID: domadv.ID(id), Score: h.Score})
	}
	return hits, nil
}
