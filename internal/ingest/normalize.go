package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/sable-labs/ragmeter/internal/domain"
)

// Normalize flattens a parsed document into an ordered record sequence,
// whatever its source shape. Detection rules run in fixed priority order:
//
//  1. bare array → element records (non-objects dropped);
//  2. object with a known container key holding an array of objects;
//  3. object with any top-level key holding an array of objects, probed
//     in document key order — never Go map iteration order;
//  4. object carrying a record field itself → one-element sequence;
//  5. nothing recognizable → empty sequence.
func Normalize(doc *Document, hint domain.SchemaHint) []domain.Record {
	if doc == nil {
		return []domain.Record{}
	}

	if seq, ok := doc.Root.([]any); ok {
		return toRecords(seq)
	}

	obj, ok := doc.Root.(map[string]any)
	if !ok {
		return []domain.Record{}
	}

	for _, key := range containerKeys[hint] {
		if seq, ok := obj[key].([]any); ok {
			return toRecords(seq)
		}
	}

	for _, key := range topLevelKeys(doc.raw) {
		if seq := recordSeq(obj[key]); seq != nil {
			return seq
		}
	}

	for _, key := range singleRecordKeys {
		if _, ok := obj[key]; ok {
			return []domain.Record{domain.Record(obj)}
		}
	}

	return []domain.Record{}
}

// recordSeq converts v when it is a non-empty array of objects, else nil.
func recordSeq(v any) []domain.Record {
	seq, ok := v.([]any)
	if !ok || len(seq) == 0 {
		return nil
	}
	for _, el := range seq {
		if _, ok := el.(map[string]any); !ok {
			return nil
		}
	}
	return toRecords(seq)
}

// toRecords keeps object elements and silently drops the rest.
func toRecords(seq []any) []domain.Record {
	out := make([]domain.Record, 0, len(seq))
	for _, el := range seq {
		if m, ok := el.(map[string]any); ok {
			out = append(out, domain.Record(m))
		}
	}
	return out
}

// topLevelKeys returns the top-level object keys in the order they appear
// in the raw document. The decoded map has lost that order, and the smart
// unpack heuristic must stay deterministic across runs.
func topLevelKeys(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	var keys []string
	depth := 1
	expectKey := true
	for depth > 0 {
		tok, err = dec.Token()
		if err != nil {
			return keys
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 1 {
					expectKey = true
				}
			}
		case string:
			if depth == 1 && expectKey {
				keys = append(keys, t)
				expectKey = false
				continue
			}
			if depth == 1 {
				expectKey = true
			}
		default:
			if depth == 1 {
				expectKey = true
			}
		}
	}
	return keys
}
