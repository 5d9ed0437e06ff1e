// Package outreach moves qualified leads through the connect and follow-up lanes.
package outreach

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
)

// TickResult reports what a lane tick did.
type TickResult struct {
	Acted  bool
	LeadID string
}

// Service owns the post-qualification lifecycle: promotion into the backlog,
// terminal disqualification, and the two action lanes.
type Service struct {
	store           LeadStore
	ranker          Ranker
	messenger       Messenger
	connectLimiter  ActionLimiter
	followUpLimiter ActionLimiter
	logger          *zap.Logger
}

// New creates the outreach service.
func New(
	store LeadStore,
	ranker Ranker,
	messenger Messenger,
	connectLimiter, followUpLimiter ActionLimiter,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:           store,
		ranker:          ranker,
		messenger:       messenger,
		connectLimiter:  connectLimiter,
		followUpLimiter: followUpLimiter,
		logger:          logger,
	}
}

// Promote moves a qualifying lead into the outreach backlog. The record must
// carry a company and a public identifier; anything less cannot be actioned
// downstream.
func (s *Service) Promote(ctx context.Context, id string) error {
	lead, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("promote %s: %w", id, err)
	}
	if lead.PublicIdentifier == "" {
		return fmt.Errorf("%w: no public identifier on record", domain.ErrMissingPrerequisite)
	}
	if lead.Company == "" {
		return fmt.Errorf("%w: no company on record", domain.ErrMissingPrerequisite)
	}

	if err := s.store.SetStatus(ctx, id, domain.StatusQualified); err != nil {
		return fmt.Errorf("promote %s: %w", id, err)
	}

	s.logger.Info("Lead promoted",
		zap.String("lead_id", id),
		zap.String("company", lead.Company),
	)
	return nil
}

// Disqualify retires a lead from the pipeline. Terminal.
func (s *Service) Disqualify(ctx context.Context, id, reason string) error {
	if err := s.store.SetStatus(ctx, id, domain.StatusDisqualified); err != nil {
		return fmt.Errorf("disqualify %s: %w", id, err)
	}

	s.logger.Info("Lead disqualified",
		zap.String("lead_id", id),
		zap.String("reason", reason),
	)
	return nil
}

// ConnectTick sends one connection request to the best qualified candidate.
func (s *Service) ConnectTick(ctx context.Context) (TickResult, error) {
	if !s.connectLimiter.CanExecute() {
		s.logger.Debug("Connect lane rate limited")
		return TickResult{}, nil
	}

	qualified, err := s.store.ByStatus(ctx, domain.StatusQualified)
	if err != nil {
		return TickResult{}, fmt.Errorf("connect tick: %w", err)
	}
	if len(qualified) == 0 {
		return TickResult{}, nil
	}

	ranked, err := s.ranker.Rank(ctx, qualified)
	if err != nil {
		return TickResult{}, fmt.Errorf("connect tick: %w", err)
	}
	candidate := ranked[0]

	err = s.messenger.Connect(ctx, candidate)
	switch {
	case errors.Is(err, domain.ErrLimitReached):
		s.logger.Warn("Upstream connection limit reached",
			zap.String("lead_id", candidate.ID),
			zap.Error(err),
		)
		s.connectLimiter.MarkExhausted()
		return TickResult{}, nil
	case errors.Is(err, domain.ErrLeadSkipped):
		return s.failLead(ctx, candidate.ID, err)
	case err != nil:
		return TickResult{}, fmt.Errorf("connect %s: %w", candidate.ID, err)
	}

	if err := s.store.SetStatus(ctx, candidate.ID, domain.StatusPending); err != nil {
		return TickResult{}, fmt.Errorf("connect tick: %w", err)
	}
	s.connectLimiter.Record()

	s.logger.Info("Connection requested",
		zap.String("lead_id", candidate.ID),
		zap.String("public_identifier", candidate.PublicIdentifier),
	)
	return TickResult{Acted: true, LeadID: candidate.ID}, nil
}

// FollowUpTick sends one follow-up message to the earliest connected lead.
func (s *Service) FollowUpTick(ctx context.Context) (TickResult, error) {
	if !s.followUpLimiter.CanExecute() {
		s.logger.Debug("Follow-up lane rate limited")
		return TickResult{}, nil
	}

	connected, err := s.store.ByStatus(ctx, domain.StatusConnected)
	if err != nil {
		return TickResult{}, fmt.Errorf("follow-up tick: %w", err)
	}
	if len(connected) == 0 {
		return TickResult{}, nil
	}
	candidate := connected[0]

	err = s.messenger.FollowUp(ctx, candidate)
	switch {
	case errors.Is(err, domain.ErrLimitReached):
		s.logger.Warn("Upstream message limit reached",
			zap.String("lead_id", candidate.ID),
			zap.Error(err),
		)
		s.followUpLimiter.MarkExhausted()
		return TickResult{}, nil
	case errors.Is(err, domain.ErrLeadSkipped):
		return s.failLead(ctx, candidate.ID, err)
	case err != nil:
		return TickResult{}, fmt.Errorf("follow up %s: %w", candidate.ID, err)
	}

	// The action is spent once the message is out; record before bookkeeping.
	s.followUpLimiter.Record()

	if err := s.store.SetStatus(ctx, candidate.ID, domain.StatusCompleted); err != nil {
		return TickResult{}, fmt.Errorf("follow-up tick: %w", err)
	}

	s.logger.Info("Follow-up sent", zap.String("lead_id", candidate.ID))
	return TickResult{Acted: true, LeadID: candidate.ID}, nil
}

func (s *Service) failLead(ctx context.Context, id string, cause error) (TickResult, error) {
	s.logger.Warn("Skipping lead", zap.String("lead_id", id), zap.Error(cause))
	if err := s.store.SetStatus(ctx, id, domain.StatusFailed); err != nil {
		return TickResult{}, fmt.Errorf("fail %s: %w", id, err)
	}
	return TickResult{Acted: true, LeadID: id}, nil
}
