package domain

import (
	"context"
	"time"
)

// Judge is the shared scoring contract between layers. The rubric behind it
// is opaque: implementations only promise scores in [0, 1].
type Judge interface {
	Evaluate(ctx context.Context, query, contextText, response string) (JudgeResult, error)
}

// JudgeHealthChecker verifies judge provider availability.
type JudgeHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Verdict is one scored judgement of a (query, context, response) triple.
type Verdict struct {
	RelevanceScore    float64 `json:"relevance_score"`
	GroundednessScore float64 `json:"groundedness_score"`
	Reasoning         string  `json:"reasoning"`
}

// JudgeResult carries the verdict and token usage through the decorator chain.
// Cache hits report zero tokens — no real tokens were consumed.
type JudgeResult struct {
	Verdict      Verdict
	PromptTokens int
	OutputTokens int
}

// Performance is the latency/cost telemetry attached to each evaluation.
type Performance struct {
	Latency time.Duration `json:"-"`
	Seconds float64       `json:"latency_seconds"`
	CostUSD float64       `json:"cost_usd"`
}

// Evaluation is one scored pair: a conversation turn judged against its
// retrieved context.
type Evaluation struct {
	Index       int         `json:"index"`
	Query       string      `json:"query"`
	Response    string      `json:"response"`
	ContextText string      `json:"context"`
	Verdict     Verdict     `json:"metrics"`
	Performance Performance `json:"performance"`
}

// RunReport aggregates one pipeline run over a turns file and a contexts file.
type RunReport struct {
	RunID       string       `json:"run_id"`
	Pairs       int          `json:"pairs"`
	Skipped     int          `json:"skipped"`
	Evaluations []Evaluation `json:"evaluations"`
	Turns       IngestResult `json:"-"`
	Contexts    IngestResult `json:"-"`
	TotalCost   float64      `json:"total_cost_usd"`
}
