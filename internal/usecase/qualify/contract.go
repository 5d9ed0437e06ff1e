package qualify

import (
	"context"

	"github.com/leadforge/leadforge/internal/domain"
)

// LeadStore is the persistence surface the qualification loop needs.
type LeadStore interface {
	ByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	Upsert(ctx context.Context, l *domain.Lead) (bool, error)
	SetStatus(ctx context.Context, id string, status domain.LeadStatus) error
	SetLabel(ctx context.Context, id string, label domain.Label, reason string) error
	Unlabeled(ctx context.Context) ([]domain.Lead, error)
	PositiveCentroid(ctx context.Context) ([]float32, error)
	LabeledDataset(ctx context.Context) (domain.Dataset, error)
	CountLabeled(ctx context.Context) (domain.LabelCounts, error)
}

// Classifier is the model surface used for selection and auto-decisions.
type Classifier interface {
	Trained() bool
	PredictDistribution(x []float32) []float64
	PredictedProbability(x []float32) float64
	BALDScore(x []float32) float64
	NeedsRetrain(totalLabeled int) bool
	Train(ctx context.Context, ds domain.Dataset) (bool, error)
}

// Promoter hands decided leads to the outreach pipeline.
type Promoter interface {
	Promote(ctx context.Context, id string) error
	Disqualify(ctx context.Context, id, reason string) error
}
