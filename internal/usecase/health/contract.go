package health

import "context"

// CatalogPinger checks that the entity catalog answers.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that the search index exists and is queryable.
type IndexChecker interface {
	IndexReady(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
