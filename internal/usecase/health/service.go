package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/riahunter/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means search still answers, possibly from fewer signals.
	Degraded Status = "degraded"
	// Unhealthy means the catalog is down and every search fails.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	CheckCatalog     = "catalog"
	CheckSearchIndex = "search_index"
	CheckEmbedding   = "embedding"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog   CatalogPinger
	index     IndexChecker
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. index and embedding can be nil.
func New(catalog CatalogPinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	return &Service{catalog: catalog, index: index, embedding: embedding, timeout: defaultCheckTimeout}
}

// Check runs all component checks concurrently, each under its own deadline.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, 3)
		g      errgroup.Group
	)
	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := fn(cctx); err != nil {
				logger.FromContext(ctx).Warn("Health check failed",
					zap.String("check", name), zap.Error(err))
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}

	run(CheckCatalog, s.catalog.Ping)
	if s.index != nil {
		run(CheckSearchIndex, s.index.IndexReady)
	}
	if s.embedding != nil {
		run(CheckEmbedding, s.embedding.HealthCheck)
	}
	_ = g.Wait()

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == CheckCatalog {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
