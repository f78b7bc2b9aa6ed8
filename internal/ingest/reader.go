// Package ingest loads conversation-turn and context-vector files with a
// dual-strategy pipeline: a strict structured parse first, and a tolerant
// pattern-based salvage pass when the file turns out to be broken.
package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
	"github.com/sable-labs/ragmeter/internal/metrics"
)

const (
	modeStructured = "structured"
	modeSalvage    = "salvage"
)

// Reader is the ingestion entry point used by the evaluation pipeline.
// Each call is independent and side-effect free beyond the file read;
// malformed content never comes back as an error, only as a reduced
// record count with FallbackUsed set.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a Reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadFile ingests one file. The only hard failure is an unreadable path.
func (r *Reader) ReadFile(path string, hint domain.SchemaHint) (domain.IngestResult, error) {
	if !hint.Valid() {
		return domain.IngestResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidSchemaHint, hint)
	}

	outcome, content, err := LoadFile(path)
	if err != nil {
		return domain.IngestResult{}, err
	}

	res := r.ingest(outcome, content, hint)
	r.logger.Info("ingested file",
		zap.String("path", path),
		zap.String("schema", string(hint)),
		zap.Bool("fallback", res.FallbackUsed),
		zap.Int("records", len(res.Records)),
		zap.Int("dropped", res.Dropped),
	)
	return res, nil
}

// ReadBytes ingests a raw text blob. It cannot fail: worst case is an
// empty sequence with FallbackUsed set.
func (r *Reader) ReadBytes(data []byte, hint domain.SchemaHint) domain.IngestResult {
	content := stripCommentLines(data)
	return r.ingest(LoadBytes(content), content, hint)
}

func (r *Reader) ingest(outcome ParseOutcome, content []byte, hint domain.SchemaHint) domain.IngestResult {
	schema := string(hint)

	if outcome.Parsed() {
		records := Normalize(outcome.Doc, hint)
		metrics.IngestFilesTotal.WithLabelValues(schema, modeStructured).Inc()
		metrics.IngestRecordsTotal.WithLabelValues(schema, modeStructured).Add(float64(len(records)))
		return domain.IngestResult{Records: records}
	}

	r.logger.Warn("structured parse failed, switching to salvage scraper",
		zap.String("schema", schema),
		zap.String("reason", outcome.Reason),
	)

	records, scanned, dropped := Scrape(content, hint)
	metrics.IngestFilesTotal.WithLabelValues(schema, modeSalvage).Inc()
	metrics.IngestRecordsTotal.WithLabelValues(schema, modeSalvage).Add(float64(len(records)))
	metrics.IngestDroppedTotal.WithLabelValues(schema).Add(float64(dropped))

	return domain.IngestResult{
		Records:      records,
		FallbackUsed: true,
		SpansScanned: scanned,
		Dropped:      dropped,
	}
}
