// Package chi exposes the search service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riahunter/internal/domain"
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/request"
	"github.com/kailas-cloud/riahunter/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/riahunter/internal/usecase/health"
)

const (
	maxBodyBytes = 1 << 20

	// DegradedHeader lists the retrieval signals dropped from a response.
	DegradedHeader = "X-Search-Degraded"
)

// searcher runs one hybrid search.
type searcher interface {
	Search(ctx context.Context, req *request.Request) (result.Response, error)
}

// catalog reads a single adviser.
type catalog interface {
	Get(ctx context.Context, id domadv.ID) (domadv.Adviser, error)
}

// healthChecker aggregates component health.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options tune request defaults.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// Dimensions is the width request embeddings must have (0 = not checked here).
	Dimensions int
	// Families overrides the fund-type keyword table; nil keeps the built-in one.
	Families *filter.Families
}

// Server holds the HTTP handlers.
type Server struct {
	search        searcher
	catalog       catalog
	health        healthChecker
	embedder      domain.Embedder
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. embedder may be nil, in which case
// text queries must carry their own embedding.
func NewServer(
	search searcher,
	catalog catalog,
	health healthChecker,
	embedder domain.Embedder,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = request.DefaultLimit
	}
	if opts.MaxLimit <= 0 || opts.MaxLimit > request.MaxLimit {
		opts.MaxLimit = request.MaxLimit
	}
	s := &Server{
		search:   search,
		catalog:  catalog,
		health:   health,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, CodeCatalogUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(context.DeadlineExceeded, http.StatusServiceUnavailable, CodeRequestCanceled),
		sentinelHandler(context.Canceled, http.StatusServiceUnavailable, CodeRequestCanceled),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.SearchPost)
		r.Get("/search", s.SearchGet)
		r.Get("/advisers/{id}", s.GetAdviser)
	})
}

// SearchPost handles POST /v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, &body)
}

// SearchGet handles GET /v1/search?q=&state=&min_aum=&min_fund_activity=&fund_type=&limit=.
// The embedding always comes from the provider.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	var (
		q, state, fundType *string
		body               SearchRequest
		query              = r.URL.Query()
	)
	binds := []struct {
		name string
		dest any
	}{
		{"q", &q},
		{"state", &state},
		{"fund_type", &fundType},
		{"min_aum", &body.MinAUM},
		{"min_fund_activity", &body.MinFundActivity},
		{"limit", &body.Limit},
		{"similarity_threshold", &body.SimilarityThreshold},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("Invalid query parameter %s", b.name))
			return
		}
	}
	body.SemanticText = deref(q)
	body.State = deref(state)
	body.FundType = deref(fundType)
	s.runSearch(w, r, &body)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, body *SearchRequest) {
	ctx := r.Context()

	req, err := s.buildRequest(ctx, body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if resp.IsDegraded() {
		kinds := make([]string, 0, len(resp.Degraded()))
		for _, k := range resp.Degraded() {
			kinds = append(kinds, string(k))
		}
		w.Header().Set(DegradedHeader, strings.Join(kinds, ","))
	}
	writeJSON(w, http.StatusOK, searchResponseFrom(&resp))
}

// buildRequest validates the wire request and fills the query embedding.
func (s *Server) buildRequest(ctx context.Context, body *SearchRequest) (request.Request, error) {
	filters, err := filter.New(body.State, deref(body.MinAUM), deref(body.MinFundActivity), body.FundType)
	if err != nil {
		return request.Request{}, err //nolint:wrapcheck // already wraps ErrInvalidRequest
	}
	if s.opts.Families != nil {
		filters = filters.WithFamilies(s.opts.Families)
	}

	limit := s.opts.DefaultLimit
	if body.Limit != nil {
		limit = *body.Limit
		if limit < 1 || limit > s.opts.MaxLimit {
			return request.Request{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, s.opts.MaxLimit)
		}
	}

	embedding := body.SemanticEmbedding
	text := strings.TrimSpace(body.SemanticText)
	var semanticErr error
	if len(embedding) == 0 && text != "" {
		if s.embedder == nil {
			return request.Request{}, fmt.Errorf(
				"%w: semantic_embedding is required when no embedding provider is configured", domain.ErrInvalidRequest)
		}
		res, err := s.embedder.Embed(ctx, text)
		switch {
		case err == nil:
			embedding = res.Embedding
		case errors.Is(err, domain.ErrEmbeddingProviderError):
			// Lexical and fallback can still answer; the service reports semantic as degraded.
			semanticErr = fmt.Errorf("embed query: %w", err)
		default:
			return request.Request{}, fmt.Errorf("embed query: %w", err)
		}
	}

	req, err := request.New(request.Params{
		Text:        body.SemanticText,
		Embedding:   embedding,
		SemanticErr: semanticErr,
		Filters:     filters,
		Limit:       limit,
		Threshold:   body.SimilarityThreshold,
		Weights:     body.Weights,
	}, s.opts.Dimensions)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return req, nil
}

// GetAdviser handles GET /v1/advisers/{id}.
func (s *Server) GetAdviser(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid adviser id")
		return
	}

	a, err := s.catalog.Get(r.Context(), domadv.ID(id))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adviserResponseFrom(a))
}

// HealthCheck handles GET /health. Only a dead catalog answers 503: a
// degraded service still serves searches.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Input errors echo their message, since it names the offending field;
// everything else answers with the sentinel text only.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if domain.IsInputError(err) {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", chimw.GetReqID(r.Context())))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
