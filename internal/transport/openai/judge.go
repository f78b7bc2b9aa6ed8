package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
)

// systemPrompt is the opaque scoring rubric. Scores come back as JSON.
const systemPrompt = `You are an expert evaluator of retrieval-augmented chat systems.
Given a user query, the retrieved context, and the assistant response, rate:
- relevance_score: how relevant the response is to the query (0 to 1)
- groundedness_score: how well the response is supported by the context,
  where 1 means fully grounded and 0 means hallucinated (0 to 1)
Reply with ONLY a JSON object:
{"relevance_score": <float>, "groundedness_score": <float>, "reasoning": "<one sentence>"}`

// Judge scores pairs via an OpenAI-compatible chat completions API.
type Judge struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the judge provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewJudge creates an OpenAI-compatible judge provider.
func NewJudge(cfg *Config) *Judge {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Judge{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Evaluate implements domain.Judge over a chat completion call.
func (j *Judge) Evaluate(
	ctx context.Context, query, contextText, response string,
) (domain.JudgeResult, error) {
	userPrompt := fmt.Sprintf("Query: %s\n\nContext: %s\n\nResponse: %s",
		query, contextText, response)

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return domain.JudgeResult{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.JudgeResult{}, fmt.Errorf("empty completion response: %w", domain.ErrJudgeProviderError)
	}

	content := resp.Choices[0].Message.Content
	verdict, err := parseVerdict(content)
	if err != nil {
		j.logger.Warn("could not parse judge verdict",
			zap.String("model", j.model),
			zap.String("content", content),
			zap.Error(err),
		)
		return domain.JudgeResult{}, fmt.Errorf("parse verdict: %w", domain.ErrJudgeProviderError)
	}

	return domain.JudgeResult{
		Verdict:      verdict,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (j *Judge) HealthCheck(ctx context.Context) error {
	if _, err := j.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

var scoreRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// parseVerdict reads the model output as JSON, tolerating markdown fences.
// If the output is not JSON at all, the first in-range float is taken as
// the relevance score — models sometimes answer with a bare number.
func parseVerdict(content string) (domain.Verdict, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var v domain.Verdict
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		if !inRange(v.RelevanceScore) || !inRange(v.GroundednessScore) {
			return domain.Verdict{}, fmt.Errorf("score out of range: %+v", v)
		}
		return v, nil
	}

	m := scoreRegex.FindStringSubmatch(text)
	if m == nil {
		return domain.Verdict{}, fmt.Errorf("no score in output")
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil || !inRange(score) {
		return domain.Verdict{}, fmt.Errorf("invalid score %q", m[1])
	}
	return domain.Verdict{
		RelevanceScore:    score,
		GroundednessScore: score,
		Reasoning:         text,
	}, nil
}

func inRange(score float64) bool { return score >= 0 && score <= 1 }

// parseAPIError extracts a readable error from the API response. Errors
// are wrapped with domain sentinels for correct status mapping upstream.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("judge API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), sentinelFor(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("judge API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, sentinelFor(apiErr.HTTPStatusCode))
	}

	return fmt.Errorf("judge request failed: %w", domain.ErrJudgeProviderError)
}

func sentinelFor(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return domain.ErrJudgeProviderError
}
