package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "ragmeter:"

// SchemaHint tells the ingestion layer which field set to expect in a file.
type SchemaHint string

const (
	// SchemaConversation marks a file of conversation turns (query/response pairs).
	SchemaConversation SchemaHint = "conversation"
	// SchemaContext marks a file of retrieved context vectors.
	SchemaContext SchemaHint = "context"
)

// Valid reports whether the hint is one of the known schemas.
func (h SchemaHint) Valid() bool {
	return h == SchemaConversation || h == SchemaContext
}

// Record is one normalized conversation turn or context vector.
// Records are read-only after ingestion: created per run, never mutated,
// discarded once the evaluation consumes them.
type Record map[string]any

// IngestResult is what the ingestion layer hands to the evaluation pipeline:
// an ordered record sequence plus diagnostics about how it was obtained.
// Malformed input never surfaces as an error — it shows up here as
// FallbackUsed=true and a reduced record count.
type IngestResult struct {
	Records []Record

	// FallbackUsed is set when the structured parse failed and records
	// were recovered by the salvage scraper instead.
	FallbackUsed bool

	// Dropped counts candidate spans the salvage pass scanned but could
	// not recover a single field from.
	Dropped int

	// SpansScanned counts candidate record spans examined by the salvage
	// pass. Zero on the structured path.
	SpansScanned int
}
