package httpapi

import (
	"context"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/usecase/health"
)

// LeadReader is the consumer interface for the read-only lead endpoints (ISP).
type LeadReader interface {
	Get(ctx context.Context, id string) (domain.Lead, error)
	List(ctx context.Context, cursor string, limit int) ([]domain.Lead, string, error)
	ByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	CountLabeled(ctx context.Context) (domain.LabelCounts, error)
}

// ClassifierState exposes the trained-model state for the status endpoint.
type ClassifierState interface {
	Trained() bool
	NeedsRetrain(totalLabeled int) bool
}

// LimiterState exposes one action lane's remaining budget.
type LimiterState interface {
	Lane() string
	Remaining() (daily, weekly int)
	DailyLimit() int
	WeeklyLimit() int
	Exhausted() bool
}

// HealthChecker runs the dependency checks behind GET /health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
