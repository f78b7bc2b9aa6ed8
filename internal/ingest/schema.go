package ingest

import (
	"regexp"

	"github.com/sable-labs/ragmeter/internal/domain"
)

// fieldKind controls which anchored patterns apply to a field and whether
// the short-numeric guard is enforced on recovered values.
type fieldKind int

const (
	// kindText is free text: recovered values shorter than 2 chars or
	// purely numeric are rejected (an ID mistaken for a query).
	kindText fieldKind = iota
	// kindScalar is an identifier or reference: string or number, no guard.
	kindScalar
)

// fieldSpec describes one recoverable field for the salvage pass.
type fieldSpec struct {
	name string
	kind fieldKind
}

// schemaFields lists the recoverable fields per schema hint, in the order
// they are probed. Adding a record shape is a table change, not a code change.
var schemaFields = map[domain.SchemaHint][]fieldSpec{
	domain.SchemaConversation: {
		{name: "id", kind: kindScalar},
		{name: "turn_id", kind: kindScalar},
		{name: "role", kind: kindScalar},
		{name: "user_query", kind: kindText},
		{name: "message", kind: kindText},
		{name: "query", kind: kindText},
		{name: "text", kind: kindText},
		{name: "bot_response", kind: kindText},
		{name: "response", kind: kindText},
		{name: "answer", kind: kindText},
	},
	domain.SchemaContext: {
		{name: "id", kind: kindScalar},
		{name: "turn_id", kind: kindScalar},
		{name: "query_id", kind: kindScalar},
		{name: "text", kind: kindText},
		{name: "context", kind: kindText},
		{name: "chunks", kind: kindText},
	},
}

// containerKeys lists the wrapper keys probed first by shape detection,
// in fixed priority order per hint.
var containerKeys = map[domain.SchemaHint][]string{
	domain.SchemaConversation: {"conversation_turns", "chats", "turns", "data"},
	domain.SchemaContext:      {"vector_data", "context", "vectors", "data"},
}

// singleRecordKeys mark an object as a bare single record when no wrapped
// sequence is found.
var singleRecordKeys = []string{"message", "text"}

// fieldPattern holds the compiled anchor patterns for one field. A value
// only counts as recovered when its closing quote is followed by a JSON
// value terminator — that is what keeps a run-on string (an unterminated
// value swallowing the next label) from being captured as data.
type fieldPattern struct {
	spec         fieldSpec
	doubleQuoted *regexp.Regexp
	singleQuoted *regexp.Regexp
	bareScalar   *regexp.Regexp // numbers and booleans, kindScalar only
}

// compilePatterns builds the anchor table for a schema hint.
func compilePatterns(fields []fieldSpec) []fieldPattern {
	out := make([]fieldPattern, 0, len(fields))
	for _, f := range fields {
		p := fieldPattern{
			spec: f,
			doubleQuoted: regexp.MustCompile(
				`"` + f.name + `"\s*:\s*"((?:[^"\\]|\\.)*)"\s*[,}\]]`),
			singleQuoted: regexp.MustCompile(
				`'` + f.name + `'\s*:\s*'((?:[^'\\]|\\.)*)'\s*[,}\]]`),
		}
		if f.kind == kindScalar {
			p.bareScalar = regexp.MustCompile(
				`["']?\b` + f.name + `\b["']?\s*:\s*(-?\d+(?:\.\d+)?|true|false)\s*[,}\]]`)
		}
		out = append(out, p)
	}
	return out
}

var patternTable = func() map[domain.SchemaHint][]fieldPattern {
	t := make(map[domain.SchemaHint][]fieldPattern, len(schemaFields))
	for hint, fields := range schemaFields {
		t[hint] = compilePatterns(fields)
	}
	return t
}()
