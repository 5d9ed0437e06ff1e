// Package qualify runs the active-learning qualification loop: one
// embedding or one labeling decision per tick.
package qualify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/boost"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/metrics"
)

// TickKind reports the kind of work a tick performed.
type TickKind string

const (
	// TickIdle means no candidate needed embedding or labeling.
	TickIdle TickKind = "idle"
	// TickEmbedded means one candidate was embedded.
	TickEmbedded TickKind = "embedded"
	// TickLabeled means one candidate received a qualification decision.
	TickLabeled TickKind = "labeled"
)

// TickOutcome reports what a qualification tick did.
type TickOutcome struct {
	Kind      TickKind
	LeadID    string
	Label     domain.Label
	Reason    string
	Retrained bool
}

// Params configure the qualification loop.
type Params struct {
	EntropyThreshold float64
	ProductContext   string
	ObjectiveContext string
}

// Service drives qualification. Not safe for concurrent ticks; the engine
// runs one lane step at a time.
type Service struct {
	store      LeadStore
	embedder   domain.Embedder
	oracle     domain.Oracle
	classifier Classifier
	promoter   Promoter
	params     Params
	logger     *zap.Logger
}

// New creates a qualification service.
func New(
	store LeadStore, embedder domain.Embedder, oracle domain.Oracle,
	classifier Classifier, promoter Promoter, params Params, logger *zap.Logger,
) *Service {
	return &Service{
		store:      store,
		embedder:   embedder,
		oracle:     oracle,
		classifier: classifier,
		promoter:   promoter,
		params:     params,
		logger:     logger,
	}
}

// Tick embeds one profile or decides one profile. Embedding takes
// precedence: a discovered profile without a vector cannot enter the
// candidate pool. After a decision, retrains synchronously once enough new
// labels accumulated.
func (s *Service) Tick(ctx context.Context) (TickOutcome, error) {
	outcome, done, err := s.embedNext(ctx)
	if err != nil || done {
		return outcome, err
	}

	candidates, err := s.store.Unlabeled(ctx)
	if err != nil {
		return TickOutcome{}, fmt.Errorf("list unlabeled: %w", err)
	}
	if len(candidates) == 0 {
		return TickOutcome{Kind: TickIdle}, nil
	}

	selected, strategy, err := s.selectCandidate(ctx, candidates)
	if err != nil {
		return TickOutcome{}, err
	}
	s.logger.Debug("Candidate selected",
		zap.String("lead_id", selected.ID),
		zap.String("strategy", strategy),
		zap.Int("pool", len(candidates)),
	)

	label, reason, source, err := s.decide(ctx, selected)
	if err != nil {
		return TickOutcome{}, err
	}

	if err := s.record(ctx, selected, label, reason, source); err != nil {
		return TickOutcome{}, err
	}

	retrained, err := s.maybeRetrain(ctx)
	if err != nil {
		return TickOutcome{}, err
	}

	return TickOutcome{
		Kind:      TickLabeled,
		LeadID:    selected.ID,
		Label:     label,
		Reason:    reason,
		Retrained: retrained,
	}, nil
}

// embedNext embeds the first enriched lead without a vector and moves it
// into the qualifying pool. Reports done=true when it consumed the tick.
// Leads with no profile text are logged and left alone; no partial state
// is stored.
func (s *Service) embedNext(ctx context.Context) (TickOutcome, bool, error) {
	enriched, err := s.store.ByStatus(ctx, domain.StatusEnriched)
	if err != nil {
		return TickOutcome{}, false, fmt.Errorf("list enriched: %w", err)
	}

	for _, lead := range enriched {
		if lead.Embedded() {
			continue
		}
		if lead.Text == "" {
			s.logger.Warn("Lead has no profile text, skipping embedding",
				zap.String("lead_id", lead.ID),
				zap.String("public_identifier", lead.PublicIdentifier),
			)
			continue
		}

		result, err := s.embedder.Embed(ctx, lead.Text)
		if err != nil {
			return TickOutcome{}, false, fmt.Errorf("embed lead %s: %w", lead.ID, err)
		}

		lead.Embedding = result.Embedding
		if _, err := s.store.Upsert(ctx, &lead); err != nil {
			return TickOutcome{}, false, fmt.Errorf("store embedding for lead %s: %w", lead.ID, err)
		}
		if err := s.store.SetStatus(ctx, lead.ID, domain.StatusQualifying); err != nil {
			return TickOutcome{}, false, fmt.Errorf("mark lead %s qualifying: %w", lead.ID, err)
		}

		s.logger.Info("Lead embedded",
			zap.String("public_identifier", lead.PublicIdentifier),
			zap.Int("dimensions", len(result.Embedding)),
		)
		return TickOutcome{Kind: TickEmbedded, LeadID: lead.ID}, true, nil
	}

	return TickOutcome{}, false, nil
}

// decide produces a label and a reason for the selected lead: the
// classifier auto-decides when its predictive entropy is below the
// threshold, everything else escalates to the oracle. The oracle is called
// at most once.
func (s *Service) decide(ctx context.Context, lead domain.Lead) (domain.Label, string, string, error) {
	probas := s.classifier.PredictDistribution(lead.Embedding)
	if len(probas) > 0 {
		mean, _ := boost.MeanStd(probas)
		entropy := boost.BinaryEntropy(mean)
		bald := boost.BALD(probas)

		if entropy < s.params.EntropyThreshold {
			label, decision := domain.LabelNegative, "auto-reject"
			if mean >= 0.5 {
				label, decision = domain.LabelPositive, "auto-accept"
			}
			reason := fmt.Sprintf("%s (prob=%.3f, entropy=%.4f, bald=%.4f)",
				decision, mean, entropy, bald)
			return label, reason, "model", nil
		}

		s.logger.Debug("Candidate uncertain, querying oracle",
			zap.String("public_identifier", lead.PublicIdentifier),
			zap.Float64("prob", mean),
			zap.Float64("entropy", entropy),
			zap.Float64("bald", bald),
		)
	}

	if lead.Text == "" {
		s.logger.Warn("No profile text, disqualifying",
			zap.String("lead_id", lead.ID),
			zap.String("public_identifier", lead.PublicIdentifier),
		)
		return domain.LabelNegative, "no profile text available", "none", nil
	}

	res, err := s.oracle.Qualify(ctx, lead.Text, s.params.ProductContext, s.params.ObjectiveContext)
	if err != nil {
		return 0, "", "", fmt.Errorf("qualify lead %s: %w", lead.ID, err)
	}
	return domain.LabelFor(res.Decision.Qualified), res.Decision.Reason, "oracle", nil
}

// record persists the label, then routes the lead onward: positives are
// promoted, negatives disqualified. A promotion missing its prerequisites
// disqualifies with the failure as the reason; the lead never stays in a
// labeled-but-unrouted state.
func (s *Service) record(ctx context.Context, lead domain.Lead, label domain.Label, reason, source string) error {
	if err := s.store.SetLabel(ctx, lead.ID, label, reason); err != nil {
		return fmt.Errorf("set label for lead %s: %w", lead.ID, err)
	}

	outcome := "reject"
	if label == domain.LabelPositive {
		outcome = "accept"
	}
	metrics.QualificationDecisionsTotal.WithLabelValues(source, outcome).Inc()

	if label != domain.LabelPositive {
		if err := s.promoter.Disqualify(ctx, lead.ID, reason); err != nil {
			return fmt.Errorf("disqualify lead %s: %w", lead.ID, err)
		}
		s.logger.Info("Lead rejected",
			zap.String("public_identifier", lead.PublicIdentifier),
			zap.String("source", source),
			zap.String("reason", reason),
		)
		return nil
	}

	err := s.promoter.Promote(ctx, lead.ID)
	switch {
	case err == nil:
		s.logger.Info("Lead qualified",
			zap.String("public_identifier", lead.PublicIdentifier),
			zap.String("source", source),
			zap.String("reason", reason),
		)
	case errors.Is(err, domain.ErrMissingPrerequisite):
		s.logger.Warn("Promotion prerequisite missing, disqualifying",
			zap.String("public_identifier", lead.PublicIdentifier),
			zap.Error(err),
		)
		if derr := s.promoter.Disqualify(ctx, lead.ID, err.Error()); derr != nil {
			return fmt.Errorf("disqualify lead %s: %w", lead.ID, derr)
		}
	default:
		return fmt.Errorf("promote lead %s: %w", lead.ID, err)
	}
	return nil
}

// maybeRetrain retrains synchronously when enough labels accumulated since
// the last successful run. Reports whether a new model was fit.
func (s *Service) maybeRetrain(ctx context.Context) (bool, error) {
	counts, err := s.store.CountLabeled(ctx)
	if err != nil {
		return false, fmt.Errorf("count labeled: %w", err)
	}
	if !s.classifier.NeedsRetrain(counts.Total) {
		return false, nil
	}

	ds, err := s.store.LabeledDataset(ctx)
	if err != nil {
		return false, fmt.Errorf("load labeled dataset: %w", err)
	}
	trained, err := s.classifier.Train(ctx, ds)
	if err != nil {
		return false, fmt.Errorf("retrain classifier: %w", err)
	}
	return trained, nil
}
