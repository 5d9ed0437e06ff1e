package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/metrics"
)

// qualifyPrompt renders the single-shot qualification prompt. The model is
// instructed to answer with one JSON object so the response parses without
// fence stripping.
var qualifyPrompt = template.Must(template.New("qualify_lead").Parse(`You are qualifying LinkedIn profiles as prospects for an outreach campaign.

## Product
{{.ProductContext}}

## Campaign objective
{{.ObjectiveContext}}

## Profile
{{.ProfileText}}

Decide whether this profile is a good prospect for the campaign objective.
Respond with a single JSON object and nothing else:
{"qualified": true or false, "reason": "<brief explanation for the decision>"}`))

type promptData struct {
	ProductContext   string
	ObjectiveContext string
	ProfileText      string
}

// decisionPayload is the structured LLM output.
type decisionPayload struct {
	Qualified bool   `json:"qualified"`
	Reason    string `json:"reason"`
}

// Qualifier implements domain.Oracle over an OpenAI-compatible chat API.
type Qualifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// QualifierConfig holds the oracle provider settings.
type QualifierConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewQualifier creates an OpenAI-compatible qualification oracle.
func NewQualifier(cfg *QualifierConfig) *Qualifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Qualifier{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: 0.7,
	}
}

// Qualify implements domain.Oracle. One chat completion per call; no retries.
func (q *Qualifier) Qualify(
	ctx context.Context, profileText, productContext, objectiveContext string,
) (domain.OracleResult, error) {
	var prompt strings.Builder
	err := qualifyPrompt.Execute(&prompt, promptData{
		ProductContext:   productContext,
		ObjectiveContext: objectiveContext,
		ProfileText:      profileText,
	})
	if err != nil {
		return domain.OracleResult{}, fmt.Errorf("render prompt: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       q.model,
		Temperature: q.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if q.maxTokens > 0 {
		req.MaxTokens = q.maxTokens
	}

	start := time.Now()

	resp, err := q.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues(q.model, "error").Inc()
		return domain.OracleResult{}, fmt.Errorf("chat completion: %v: %w", err, domain.ErrOracle)
	}
	if len(resp.Choices) == 0 {
		metrics.OracleRequestsTotal.WithLabelValues(q.model, "error").Inc()
		return domain.OracleResult{}, fmt.Errorf("empty completion response: %w", domain.ErrOracle)
	}

	var payload decisionPayload
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		metrics.OracleRequestsTotal.WithLabelValues(q.model, "error").Inc()
		return domain.OracleResult{}, fmt.Errorf("parse decision %q: %v: %w", content, err, domain.ErrOracle)
	}

	metrics.OracleRequestsTotal.WithLabelValues(q.model, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues(q.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.OracleTokensTotal.WithLabelValues(q.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.OracleTokensTotal.WithLabelValues(q.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.OracleTokensTotal.WithLabelValues(q.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.OracleResult{
		Decision: domain.Decision{
			Qualified: payload.Qualified,
			Reason:    payload.Reason,
		},
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (q *Qualifier) HealthCheck(ctx context.Context) error {
	if _, err := q.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
