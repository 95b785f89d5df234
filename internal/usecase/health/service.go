package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
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

// Component names in Report.Checks.
const (
	ComponentEngine    = "engine"
	ComponentPostgres  = "postgres"
	ComponentRedis     = "redis"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Components are the checked dependencies. Only Engine is required.
type Components struct {
	Engine    Pinger
	Postgres  Pinger
	Redis     Pinger
	Embedding EmbeddingChecker
}

// Service coordinates health checks.
type Service struct {
	c Components
}

// New creates a Service.
func New(c Components) *Service {
	return &Service{c: c}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	run := func(name string, check func(context.Context) error) {
		if err := check(ctx); err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	run(ComponentEngine, s.c.Engine.Ping)
	if s.c.Postgres != nil {
		run(ComponentPostgres, s.c.Postgres.Ping)
	}
	if s.c.Redis != nil {
		run(ComponentRedis, s.c.Redis.Ping)
	}
	if s.c.Embedding != nil {
		run(ComponentEmbedding, s.c.Embedding.HealthCheck)
	}

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == ComponentEngine {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
