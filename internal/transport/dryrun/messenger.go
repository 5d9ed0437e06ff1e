// Package dryrun provides a messenger that logs outreach actions instead of
// delivering them. It stands in wherever no real delivery channel is wired:
// local development and pipeline runs that only discover and qualify.
package dryrun

import (
	"context"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
)

// Messenger logs each action and reports success.
type Messenger struct {
	logger *zap.Logger
}

// NewMessenger creates a dry-run messenger.
func NewMessenger(logger *zap.Logger) *Messenger {
	return &Messenger{logger: logger}
}

// Connect logs the connection request that would have been sent.
func (m *Messenger) Connect(_ context.Context, lead domain.Lead) error {
	m.logger.Info("Connection request (dry run)",
		zap.String("lead_id", lead.ID),
		zap.String("public_identifier", lead.PublicIdentifier),
		zap.String("company", lead.Company),
	)
	return nil
}

// FollowUp logs the follow-up message that would have been sent.
func (m *Messenger) FollowUp(_ context.Context, lead domain.Lead) error {
	m.logger.Info("Follow-up message (dry run)",
		zap.String("lead_id", lead.ID),
		zap.String("public_identifier", lead.PublicIdentifier),
		zap.String("company", lead.Company),
	)
	return nil
}
