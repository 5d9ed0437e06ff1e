package llmbudget

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
)

// Checker is the local interface for budget enforcement.
type Checker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// Oracle wraps an LLM oracle with budget enforcement. The budget is checked
// before the call and charged with the reported token usage after.
type Oracle struct {
	inner  domain.Oracle
	budget Checker
	logger *zap.Logger
}

// NewOracle wraps an oracle with budget enforcement.
func NewOracle(inner domain.Oracle, budget Checker, logger *zap.Logger) *Oracle {
	return &Oracle{inner: inner, budget: budget, logger: logger}
}

// Qualify checks the budget, delegates to the inner oracle, and records usage.
func (o *Oracle) Qualify(
	ctx context.Context, profileText, productContext, objectiveContext string,
) (domain.OracleResult, error) {
	if err := o.budget.Check(ctx); err != nil {
		o.logger.Error("Oracle budget exceeded", zap.Error(err))
		return domain.OracleResult{}, fmt.Errorf("budget check: %w", err)
	}

	result, err := o.inner.Qualify(ctx, profileText, productContext, objectiveContext)
	if err != nil {
		return domain.OracleResult{}, err
	}

	if result.TotalTokens > 0 {
		o.budget.Record(int64(result.TotalTokens))
	}
	return result, nil
}

// Embedder wraps an embedder with budget enforcement. Sits below the cache
// so cache hits never touch the budget.
type Embedder struct {
	inner  domain.Embedder
	budget Checker
	logger *zap.Logger
}

// NewEmbedder wraps an embedder with budget enforcement.
func NewEmbedder(inner domain.Embedder, budget Checker, logger *zap.Logger) *Embedder {
	return &Embedder{inner: inner, budget: budget, logger: logger}
}

// Embed checks the budget, delegates to the inner embedder, and records usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.budget.Check(ctx); err != nil {
		e.logger.Error("Embedding budget exceeded", zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
	}

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if result.TotalTokens > 0 {
		e.budget.Record(int64(result.TotalTokens))
	}
	return result, nil
}
