package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
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
	// CheckPending indicates a component that is not initialized yet.
	CheckPending CheckResult = "pending"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	schema    SchemaChecker
}

// New creates a Service. embedding and schema can be nil.
func New(db DBPinger, embedding EmbeddingChecker, schema SchemaChecker) *Service {
	return &Service{db: db, embedding: embedding, schema: schema}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbErr := s.db.Ping(ctx)
	checks["database"] = result(dbErr)

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	if s.schema != nil {
		checks["schema"] = schemaResult(s.schema.Check(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if dbErr != nil {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

func schemaResult(ready bool, err error) CheckResult {
	switch {
	case err != nil:
		return CheckError
	case ready:
		return CheckOK
	default:
		return CheckPending
	}
}
