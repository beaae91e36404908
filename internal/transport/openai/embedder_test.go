package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/riahunter/internal/domain"
	"github.com/kailas-cloud/riahunter/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingResponse mirrors the OpenAI-compatible API embedding response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vec []float32, tokens int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := embeddingResponse{Object: "list", Model: "test-model"}
		if vec != nil {
			resp.Data = []embeddingData{{Object: "embedding", Embedding: vec}}
		}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(url string, dims int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		Dimensions: dims,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	expected := []float32{0.1, 0.2, 0.3, 0.4}
	srv := embeddingServer(t, expected, 10)

	result, err := newTestEmbedder(srv.URL, 4).Embed(context.Background(), "venture capital advisers")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expected) {
		t.Fatalf("expected %d dimensions, got %d", len(expected), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expected[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expected[i])
		}
	}
	if result.PromptTokens != 10 || result.TotalTokens != 10 {
		t.Errorf("tokens = %d/%d", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedder_EmptyText(t *testing.T) {
	_, err := newTestEmbedder("http://unused", 4).Embed(context.Background(), "   ")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, []float32{0.1, 0.2}, 1)
	_, err := newTestEmbedder(srv.URL, 4).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	srv := embeddingServer(t, nil, 0)
	_, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m", Timeout: 20 * time.Millisecond})
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("detail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("detail = %q", got)
	}
}
