package outreach

import (
	"context"

	"github.com/leadforge/leadforge/internal/domain"
)

// LeadStore is the subset of the lead repository the outreach service uses.
type LeadStore interface {
	Get(ctx context.Context, id string) (domain.Lead, error)
	ByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	SetStatus(ctx context.Context, id string, status domain.LeadStatus) error
}

// Ranker orders qualified candidates for the connect lane.
type Ranker interface {
	Rank(ctx context.Context, candidates []domain.Lead) ([]domain.Lead, error)
}

// Messenger delivers outreach actions on the external channel.
// Implementations map an upstream hard block to domain.ErrLimitReached and a
// per-profile refusal to domain.ErrLeadSkipped; anything else is a lane error.
type Messenger interface {
	Connect(ctx context.Context, lead domain.Lead) error
	FollowUp(ctx context.Context, lead domain.Lead) error
}

// ActionLimiter gates one lane's actions.
type ActionLimiter interface {
	CanExecute() bool
	Record()
	MarkExhausted()
}
