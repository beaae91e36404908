package chi

import (
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/request"
	"github.com/kailas-cloud/riahunter/internal/domain/search/result"
)

// ErrorCode is the machine-readable error kind in an ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeNotFound               ErrorCode = "not_found"
	CodeCatalogUnavailable     ErrorCode = "catalog_unavailable"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeRequestCanceled        ErrorCode = "request_canceled"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /v1/search body. Absent optional fields take
// the server defaults.
type SearchRequest struct {
	SemanticText        string           `json:"semantic_text"`
	SemanticEmbedding   []float32        `json:"semantic_embedding,omitempty"`
	State               string           `json:"state,omitempty"`
	MinAUM              *float64         `json:"min_aum,omitempty"`
	MinFundActivity     *float64         `json:"min_fund_activity,omitempty"`
	FundType            string           `json:"fund_type,omitempty"`
	Limit               *int             `json:"limit,omitempty"`
	SimilarityThreshold *float64         `json:"similarity_threshold,omitempty"`
	Weights             *request.Weights `json:"weights,omitempty"`
}

// SearchResult is one ranked adviser.
type SearchResult struct {
	EntityID      int64             `json:"entity_id"`
	DisplayName   string            `json:"display_name"`
	City          string            `json:"city"`
	State         string            `json:"state"`
	AUM           float64           `json:"aum"`
	FundCount     int               `json:"fund_count"`
	FundAUM       float64           `json:"fund_aum"`
	CombinedScore float64           `json:"combined_score"`
	Provenance    result.Provenance `json:"provenance"`
}

// SearchResponse is the search answer. Degraded names signals that failed
// and were left out of the ranking.
type SearchResponse struct {
	Results         []SearchResult `json:"results"`
	TotalConsidered int            `json:"total_considered"`
	Degraded        []string       `json:"degraded,omitempty"`
}

// AdviserResponse is a catalog record without its embedding.
type AdviserResponse struct {
	domadv.Adviser
	HasEmbedding bool `json:"has_embedding"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchResponseFrom(resp *result.Response) SearchResponse {
	results := resp.Results()
	out := SearchResponse{
		Results:         make([]SearchResult, len(results)),
		TotalConsidered: resp.TotalConsidered(),
	}
	for i := range results {
		r := &results[i]
		a := r.Adviser()
		out.Results[i] = SearchResult{
			EntityID:      int64(a.ID),
			DisplayName:   a.DisplayName,
			City:          a.Location.City,
			State:         a.Location.State,
			AUM:           a.AUM,
			FundCount:     a.FundCount,
			FundAUM:       a.FundAUM,
			CombinedScore: r.Score(),
			Provenance:    r.Provenance(),
		}
	}
	for _, k := range resp.Degraded() {
		out.Degraded = append(out.Degraded, string(k))
	}
	return out
}

func adviserResponseFrom(a domadv.Adviser) AdviserResponse {
	resp := AdviserResponse{Adviser: a, HasEmbedding: a.HasEmbedding()}
	if a.Narrative != nil {
		resp.Narrative = &domadv.Narrative{Text: a.Narrative.Text}
	}
	return resp
}
