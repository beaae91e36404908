package domain

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector and the provider's token usage.
// A cache hit reports zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prefixes queries with the model's retrieval instruction
// (e.g. "search_query: " for nomic-style models). Blank text is passed
// through unprefixed so the provider rejects it as empty.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner with a query instruction.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Instruction returns the configured prefix.
func (e *InstructionEmbedder) Instruction() string { return e.instruction }

func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if strings.TrimSpace(text) != "" {
		text = e.instruction + text
	}
	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
