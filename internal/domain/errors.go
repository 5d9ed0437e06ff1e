package domain

import "errors"

var (
	// ErrLeadNotFound signals a missing lead record.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrDimensionMismatch signals an embedding of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNoCentroid signals that no positive-labeled embeddings exist yet.
	ErrNoCentroid = errors.New("no positive centroid")
	// ErrNoProfileText signals a profile whose projection is empty.
	ErrNoProfileText = errors.New("no profile text available")
	// ErrUntrained signals a prediction on an untrained classifier.
	// Predicting before training is a programming error; callers gate on
	// Trained(). Used as a panic value, never returned.
	ErrUntrained = errors.New("classifier is not trained")
	// ErrOracle signals an LLM oracle failure.
	ErrOracle = errors.New("oracle request failed")
	// ErrMissingPrerequisite signals that promotion lacks required upstream data.
	ErrMissingPrerequisite = errors.New("promotion prerequisite missing")
	// ErrLimitReached signals an exhausted action budget.
	ErrLimitReached = errors.New("action limit reached")
	// ErrLeadSkipped signals the messenger refused one profile; the lead is
	// failed and the lane moves on.
	ErrLeadSkipped = errors.New("lead skipped")
	// ErrBudgetExceeded signals an exhausted token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidStatus signals a lead status transition that is not allowed.
	ErrInvalidStatus = errors.New("invalid status transition")
)
