package eval

import (
	"context"

	"github.com/sable-labs/ragmeter/internal/domain"
)

// Ingestor loads source files into normalized record sequences.
type Ingestor interface {
	ReadFile(path string, hint domain.SchemaHint) (domain.IngestResult, error)
	ReadBytes(data []byte, hint domain.SchemaHint) domain.IngestResult
}

// Judge scores one (query, context, response) triple.
type Judge interface {
	Evaluate(ctx context.Context, query, contextText, response string) (domain.JudgeResult, error)
}
