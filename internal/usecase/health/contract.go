package health

import "context"

// DBPinger checks lead store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external LLM provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
