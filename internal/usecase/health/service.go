package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// probeTimeout bounds each component so a stuck provider cannot stall /healthz.
const probeTimeout = 3 * time.Second

// Service coordinates health checks.
type Service struct {
	probes map[string]probeFunc
	logger *zap.Logger
}

// New creates a Service. cache and embedding can be nil.
func New(db, cache Pinger, embedding EmbeddingChecker, logger *zap.Logger) *Service {
	probes := map[string]probeFunc{"database": db.Ping}
	if cache != nil {
		probes["cache"] = cache.Ping
	}
	if embedding != nil {
		probes["embedding"] = embedding.HealthCheck
	}
	return &Service{probes: probes, logger: logger}
}

// Check probes all configured components concurrently.
// A database failure makes the report Unhealthy; any other failure makes it Degraded.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.probes))
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, probe := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, probeTimeout)
			defer cancel()
			res := s.result(name, probe(pctx))

			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == "database" {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) result(name string, err error) CheckResult {
	if err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
