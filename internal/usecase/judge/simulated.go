// Package judge holds the scoring providers and their decorators. The
// rubric itself is opaque: a judge maps (query, context, response) to
// scores in [0, 1] and this package does not interpret them.
package judge

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
)

const (
	simMinDelay = 100 * time.Millisecond
	simMaxDelay = 500 * time.Millisecond
)

// Simulated is a judge that produces canned verdicts with realistic
// latency, for running the pipeline without API spend.
type Simulated struct {
	model  string
	sleep  func(time.Duration)
	randf  func() float64
	logger *zap.Logger
}

// NewSimulated creates a simulated judge.
func NewSimulated(model string, logger *zap.Logger) *Simulated {
	return &Simulated{
		model:  model,
		sleep:  time.Sleep,
		randf:  rand.Float64,
		logger: logger,
	}
}

// WithDelayFunc overrides the latency simulation, for tests.
func (s *Simulated) WithDelayFunc(sleep func(time.Duration), randf func() float64) *Simulated {
	s.sleep = sleep
	s.randf = randf
	return s
}

// Evaluate implements domain.Judge with fixed scores and simulated
// network delay. Token usage is estimated from text length the same way
// a real provider bill would be approximated.
func (s *Simulated) Evaluate(
	ctx context.Context, query, contextText, response string,
) (domain.JudgeResult, error) {
	delay := simMinDelay + time.Duration(s.randf()*float64(simMaxDelay-simMinDelay))

	select {
	case <-ctx.Done():
		return domain.JudgeResult{}, ctx.Err()
	default:
	}
	s.sleep(delay)

	verdict := domain.Verdict{
		RelevanceScore:    0.85,
		GroundednessScore: 0.95,
		Reasoning:         "The response aligns well with the provided context. (simulated)",
	}

	out, _ := json.Marshal(verdict)
	result := domain.JudgeResult{
		Verdict:      verdict,
		PromptTokens: EstimateTokens(query + " " + contextText + " " + response),
		OutputTokens: EstimateTokens(string(out)),
	}

	s.logger.Debug("simulated evaluation",
		zap.String("model", s.model),
		zap.Duration("delay", delay),
		zap.Int("prompt_tokens", result.PromptTokens),
	)
	return result, nil
}

// HealthCheck always passes: there is no provider behind the simulation.
func (s *Simulated) HealthCheck(_ context.Context) error { return nil }
