package domain

import "context"

// Oracle asks an LLM whether a profile fits the campaign. A single external
// call per invocation; failures propagate to the caller, which decides
// whether to skip or abort. Callers must not invoke it more than once per
// lead per decision cycle.
type Oracle interface {
	Qualify(ctx context.Context, profileText, productContext, objectiveContext string) (OracleResult, error)
}

// OracleResult is the structured qualification verdict plus token usage.
type OracleResult struct {
	Decision         Decision
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
