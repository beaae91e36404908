package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/riahunter/internal/domain"
	"github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/request"
	"github.com/kailas-cloud/riahunter/internal/domain/search/result"
	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
	"github.com/kailas-cloud/riahunter/internal/logger"
)

// Search outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Failure reasons reported for absorbed retrieval errors.
const (
	ReasonTimeout     = "timeout"
	ReasonUnavailable = "unavailable"
	ReasonCanceled    = "canceled"
)

// Config tunes ranking and retrieval.
type Config struct {
	RRFK                int
	Weights             request.Weights
	SimilarityThreshold float64
	// CandidateMultiplier sets N = limit * multiplier hits per signal.
	CandidateMultiplier int
	RetrievalTimeout    time.Duration
	MaxInFlight         int64
}

// DefaultConfig returns the stock ranking parameters.
func DefaultConfig() Config {
	return Config{
		RRFK:                DefaultRRFK,
		Weights:             request.DefaultWeights,
		CandidateMultiplier: 2,
		RetrievalTimeout:    3 * time.Second,
		MaxInFlight:         64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RRFK <= 0 {
		c.RRFK = d.RRFK
	}
	if c.Weights.Validate() != nil {
		c.Weights = d.Weights
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = d.CandidateMultiplier
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = d.RetrievalTimeout
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = d.MaxInFlight
	}
	return c
}

// Service answers hybrid adviser searches: it computes the admissible set,
// runs both retrieval signals concurrently, fuses them and tops the list up
// with an AUM-ordered fallback. It holds no global state.
type Service struct {
	catalog Catalog
	vectors VectorStore
	lexical LexicalIndex
	rec     Recorder
	cfg     Config
	sem     *semaphore.Weighted
}

// New creates a search service. A nil Recorder disables metrics.
func New(catalog Catalog, vectors VectorStore, lexical LexicalIndex, rec Recorder, cfg Config) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	cfg = cfg.withDefaults()
	return &Service{
		catalog: catalog,
		vectors: vectors,
		lexical: lexical,
		rec:     rec,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
	}
}

// Search runs one query. Retrieval failures degrade the response instead of
// failing it; catalog failures return ErrCatalogUnavailable and cancellation
// of ctx returns ctx.Err().
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Response, error) {
	start := time.Now()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.rec.SearchCompleted(OutcomeCanceled, time.Since(start), 0, 0)
		return result.Response{}, err
	}
	defer s.sem.Release(1)

	resp, err := s.search(ctx, req)

	outcome := OutcomeOK
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = OutcomeCanceled
	case err != nil:
		outcome = OutcomeError
	case resp.IsDegraded():
		outcome = OutcomeDegraded
	}
	s.rec.SearchCompleted(outcome, time.Since(start), len(resp.Results()), resp.FallbackCount())

	return resp, err
}

func (s *Service) search(ctx context.Context, req *request.Request) (result.Response, error) {
	log := logger.FromContext(ctx)

	pool, err := s.admissible(ctx, req.Filters())
	if err != nil {
		if ctx.Err() != nil {
			return result.Response{}, ctx.Err()
		}
		return result.Response{}, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	if len(pool) == 0 {
		return result.NewResponse(nil, 0, nil), nil
	}

	byID := make(map[adviser.ID]*adviser.Adviser, len(pool))
	within := adviser.NewIDSet()
	for _, a := range pool {
		byID[a.ID] = a
		within.Add(a.ID)
	}

	limit := req.Limit()
	topN := s.topN(limit)

	var (
		semIDs, lexIDs []adviser.ID
		lexErr         error
		// a query embedding lost upstream counts as a failed semantic signal
		semErr = req.SemanticErr()
	)
	g, gctx := errgroup.WithContext(ctx)
	if req.HasEmbedding() && s.vectors != nil {
		g.Go(func() error {
			semIDs, semErr = s.semantic(gctx, req, within, topN)
			return ctx.Err()
		})
	}
	if req.Text() != "" && s.lexical != nil {
		g.Go(func() error {
			lexIDs, lexErr = s.lexicalSearch(gctx, req, within, topN)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return result.Response{}, err
	}

	var degraded []signal.Kind
	for _, f := range []struct {
		kind signal.Kind
		err  error
	}{{signal.Semantic, semErr}, {signal.Lexical, lexErr}} {
		if f.err == nil {
			continue
		}
		reason := failureReason(f.err)
		log.Warn("retrieval signal failed, degrading",
			zap.String("signal", string(f.kind)),
			zap.String("reason", reason),
			zap.Error(f.err),
		)
		s.rec.RetrievalFailed(f.kind, reason)
		degraded = append(degraded, f.kind)
	}

	fusion := Fusion{K: s.cfg.RRFK, Weights: req.Weights(s.cfg.Weights)}
	fused := fusion.Fuse(semIDs, lexIDs, func(id adviser.ID) float64 { return byID[id].AUM })
	if len(fused) > limit {
		fused = fused[:limit]
	}

	results := make([]result.Result, 0, min(limit, len(pool)))
	taken := adviser.NewIDSet()
	for _, f := range fused {
		taken.Add(f.ID)
		results = append(results, result.New(*byID[f.ID], f.Score, result.Provenance{
			FromSemantic: f.FromSemantic,
			FromLexical:  f.FromLexical,
		}))
	}

	if len(results) < limit {
		fill := fallbackFill(pool, taken, limit-len(results))
		log.Debug("fallback fill",
			zap.Int("fused", len(results)),
			zap.Int("fallback", len(fill)),
			zap.Int("admissible", len(pool)),
		)
		for _, a := range fill {
			results = append(results, result.New(*a, 0, result.Provenance{FromFallback: true}))
		}
	}

	return result.NewResponse(results, len(pool), degraded), nil
}

// admissible loads the catalog candidates and keeps those passing f.
// A repeated id keeps its first record.
func (s *Service) admissible(ctx context.Context, f filter.Filters) ([]*adviser.Adviser, error) {
	candidates, err := s.catalog.Candidates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	seen := adviser.NewIDSet()
	pool := make([]*adviser.Adviser, 0, len(candidates))
	for i := range candidates {
		a := &candidates[i]
		if seen.Has(a.ID) || !f.Admissible(a) {
			continue
		}
		seen.Add(a.ID)
		pool = append(pool, a)
	}
	return pool, nil
}

func (s *Service) topN(limit int) int {
	n := limit * s.cfg.CandidateMultiplier
	if n < limit {
		n = limit
	}
	return n
}

// semantic returns admissible ids whose similarity is strictly above the threshold.
func (s *Service) semantic(
	ctx context.Context, req *request.Request, within adviser.IDSet, topN int,
) ([]adviser.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
	defer cancel()

	hits, err := s.vectors.Nearest(ctx, signal.VectorQuery{
		Embedding: req.Embedding(),
		Within:    within,
		Filters:   req.Filters(),
		TopN:      topN,
	})
	if err != nil {
		return nil, retrievalError(ctx, "nearest", err)
	}

	threshold := req.Threshold(s.cfg.SimilarityThreshold)
	return rankedIDs(hits, within, topN, func(score float64) bool { return score > threshold }), nil
}

func (s *Service) lexicalSearch(
	ctx context.Context, req *request.Request, within adviser.IDSet, topN int,
) ([]adviser.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
	defer cancel()

	hits, err := s.lexical.Search(ctx, signal.TextQuery{
		Text:    req.Text(),
		Within:  within,
		Filters: req.Filters(),
		TopN:    topN,
	})
	if err != nil {
		return nil, retrievalError(ctx, "lexical search", err)
	}

	return rankedIDs(hits, within, topN, func(score float64) bool { return score > 0 }), nil
}

// rankedIDs drops hits outside within or failing keep, orders the rest by
// score descending then id ascending, and caps the list at topN.
func rankedIDs(hits []signal.Hit, within adviser.IDSet, topN int, keep func(float64) bool) []adviser.ID {
	kept := make([]signal.Hit, 0, len(hits))
	seen := adviser.NewIDSet()
	for _, h := range hits {
		if !within.Has(h.ID) || seen.Has(h.ID) || !keep(h.Score) {
			continue
		}
		seen.Add(h.ID)
		kept = append(kept, h)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	if len(kept) > topN {
		kept = kept[:topN]
	}
	ids := make([]adviser.ID, len(kept))
	for i, h := range kept {
		ids[i] = h.ID
	}
	return ids
}

func retrievalError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRetrievalTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrRetrievalUnavailable, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRetrievalTimeout):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonUnavailable
	}
}
