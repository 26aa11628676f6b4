package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SchemaChecker reports whether the collection index exists.
type SchemaChecker interface {
	Check(ctx context.Context) (bool, error)
}
