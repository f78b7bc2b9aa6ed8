package judge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
	"github.com/sable-labs/ragmeter/internal/metrics"
)

// Instrumented wraps a judge with metrics, cost accounting, and logging.
// Provider-level request metrics stay in the transport; this layer owns
// token and spend accounting across whatever chain sits beneath it.
type Instrumented struct {
	inner    domain.Judge
	provider string
	model    string
	pricing  Pricing
	logger   *zap.Logger
}

// NewInstrumented wraps a judge with observability.
func NewInstrumented(
	inner domain.Judge, provider, model string,
	pricing Pricing, logger *zap.Logger,
) *Instrumented {
	return &Instrumented{
		inner:    inner,
		provider: provider,
		model:    model,
		pricing:  pricing,
		logger:   logger,
	}
}

// Evaluate delegates to the inner judge and records usage.
func (p *Instrumented) Evaluate(
	ctx context.Context, query, contextText, response string,
) (domain.JudgeResult, error) {
	start := time.Now()

	result, err := p.inner.Evaluate(ctx, query, contextText, response)

	duration := time.Since(start)

	if err != nil {
		metrics.JudgeRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
		p.logger.Error("judge evaluation failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.JudgeResult{}, fmt.Errorf("evaluate: %w", err)
	}

	metrics.JudgeRequestsTotal.WithLabelValues(p.provider, p.model, "success").Inc()
	metrics.JudgeRequestDuration.WithLabelValues(p.provider, p.model).Observe(duration.Seconds())

	if result.PromptTokens > 0 || result.OutputTokens > 0 {
		metrics.JudgeTokensTotal.WithLabelValues(p.provider, p.model, "prompt").
			Add(float64(result.PromptTokens))
		metrics.JudgeTokensTotal.WithLabelValues(p.provider, p.model, "output").
			Add(float64(result.OutputTokens))
		metrics.JudgeCostTotal.WithLabelValues(p.provider, p.model).
			Add(p.pricing.Cost(result.PromptTokens, result.OutputTokens))
	}

	p.logger.Debug("judge evaluation completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Float64("relevance", result.Verdict.RelevanceScore),
		zap.Float64("groundedness", result.Verdict.GroundednessScore),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("output_tokens", result.OutputTokens),
	)
	return result, nil
}
