// Package eval pairs ingested conversation turns with their retrieved
// contexts and runs each pair through the judge.
package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
	judgeuc "github.com/sable-labs/ragmeter/internal/usecase/judge"
)

// minQueryRunes is the shortest query worth judging. Anything at or below
// this is treated as noise (an ID or a stray fragment) and skipped.
const minQueryRunes = 5

// placeholderResponse stands in when a turn record carries no response field.
const placeholderResponse = "Generated Response"

// queryKeys, responseKeys, contextTextKeys drive the smart key search over
// record fields, probed in priority order.
var (
	queryKeys       = []string{"user_query", "message", "query", "text"}
	responseKeys    = []string{"bot_response", "response", "answer"}
	contextTextKeys = []string{"text", "context", "chunks"}
)

// botRole marks records produced by the assistant side of a conversation;
// their text is never treated as a user query.
const botRole = "AI/Chatbot"

// Service runs the evaluation pipeline.
type Service struct {
	ingest   Ingestor
	judge    Judge
	pricing  judgeuc.Pricing
	logger   *zap.Logger
	maxPairs int // 0 = unbounded
}

// New creates an evaluation service.
func New(ingest Ingestor, judge Judge, pricing judgeuc.Pricing, logger *zap.Logger) *Service {
	return &Service{ingest: ingest, judge: judge, pricing: pricing, logger: logger}
}

// WithMaxPairs caps how many pairs a single run evaluates.
func (s *Service) WithMaxPairs(n int) *Service {
	s.maxPairs = n
	return s
}

// EvaluateFiles ingests a turns file and a contexts file and scores the
// resulting pairs. A malformed file reduces the pair count; only an
// unreadable path is an error.
func (s *Service) EvaluateFiles(ctx context.Context, turnsPath, contextsPath string) (domain.RunReport, error) {
	turns, err := s.ingest.ReadFile(turnsPath, domain.SchemaConversation)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("ingest turns: %w", err)
	}
	contexts, err := s.ingest.ReadFile(contextsPath, domain.SchemaContext)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("ingest contexts: %w", err)
	}
	return s.run(ctx, turns, contexts)
}

// EvaluateBytes runs the pipeline over raw text blobs, for callers that
// already hold the file contents (the HTTP transport).
func (s *Service) EvaluateBytes(ctx context.Context, turnsText, contextsText []byte) (domain.RunReport, error) {
	turns := s.ingest.ReadBytes(turnsText, domain.SchemaConversation)
	contexts := s.ingest.ReadBytes(contextsText, domain.SchemaContext)
	return s.run(ctx, turns, contexts)
}

func (s *Service) run(ctx context.Context, turns, contexts domain.IngestResult) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:       uuid.NewString(),
		Turns:       turns,
		Contexts:    contexts,
		Evaluations: []domain.Evaluation{},
	}

	limit := min(len(turns.Records), len(contexts.Records))
	if s.maxPairs > 0 && limit > s.maxPairs {
		limit = s.maxPairs
	}
	report.Pairs = limit

	s.logger.Info("evaluating pairs",
		zap.String("run_id", report.RunID),
		zap.Int("pairs", limit),
		zap.Bool("turns_fallback", turns.FallbackUsed),
		zap.Bool("contexts_fallback", contexts.FallbackUsed),
	)

	for i := 0; i < limit; i++ {
		turn := turns.Records[i]
		contextText := contextTextFrom(contexts.Records[i])

		query, ok := queryFrom(turn)
		if !ok {
			report.Skipped++
			continue
		}
		response := responseFrom(turn)

		start := time.Now()
		result, err := s.judge.Evaluate(ctx, query, contextText, response)
		latency := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("evaluate pair %d: %w", i, err)
			}
			s.logger.Warn("pair evaluation failed, continuing",
				zap.String("run_id", report.RunID),
				zap.Int("pair", i),
				zap.Error(err),
			)
			report.Skipped++
			continue
		}

		cost := s.pricing.Cost(result.PromptTokens, result.OutputTokens)
		report.Evaluations = append(report.Evaluations, domain.Evaluation{
			Index:       i,
			Query:       query,
			Response:    response,
			ContextText: contextText,
			Verdict:     result.Verdict,
			Performance: domain.Performance{
				Latency: latency,
				Seconds: latency.Seconds(),
				CostUSD: cost,
			},
		})
		report.TotalCost += cost
	}

	return report, nil
}

// queryFrom finds the user query in a turn record. Records authored by
// the bot side are not queries, and too-short values are noise.
func queryFrom(rec domain.Record) (string, bool) {
	if role, _ := rec["role"].(string); role == botRole {
		return "", false
	}
	for _, key := range queryKeys {
		if v, ok := rec[key].(string); ok && len([]rune(v)) > minQueryRunes {
			return v, true
		}
	}
	return "", false
}

// responseFrom finds the AI response in a turn record, or the placeholder.
func responseFrom(rec domain.Record) string {
	for _, key := range responseKeys {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return placeholderResponse
}

// contextTextFrom extracts retrieved context text from a context record.
// Chunk lists are joined; a record with no recognizable text field gets
// an explicit marker rather than an empty string.
func contextTextFrom(rec domain.Record) string {
	for _, key := range contextTextKeys {
		switch v := rec[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			return fmt.Sprint(v)
		}
	}
	return "Context Not Found"
}
