package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sable-labs/ragmeter/internal/domain"
)

// Scrape recovers records from the raw text of a file that failed the
// structured parse. It scans for self-contained record spans, parses each
// span locally, and falls back to field-anchored matching when even the
// span is broken. Spans that yield zero fields are dropped, not emitted.
//
// Scrape never fails — worst case it returns an empty sequence. Output
// order follows span order in the text.
func Scrape(raw []byte, hint domain.SchemaHint) (records []domain.Record, scanned, dropped int) {
	pats := patternTable[hint]
	spans := recordSpans(string(raw))

	records = make([]domain.Record, 0, len(spans))
	for _, span := range spans {
		rec, ok := salvageSpan(span, pats)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, len(spans), dropped
}

// recordSpans extracts candidate record spans: objects that are direct
// elements of an array, or — when the text holds no such objects — the
// top-level objects themselves (a file that is one bare record).
//
// The walk is string-aware so braces inside values do not split records.
// An unterminated span at EOF is still emitted as a candidate; anchored
// recovery may yet pull fields out of it.
func recordSpans(text string) []string {
	var (
		spans []string
		whole []string // top-level objects, used only if no array elements found

		stack    []byte // open {, [ delimiters
		topStart = -1
		recStart = -1
		recDepth int

		inStr   bool
		escaped bool
		quote   byte
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inStr = false
			}
			continue
		}

		switch c {
		case '"', '\'':
			inStr = true
			quote = c
		case '[':
			stack = append(stack, '[')
		case '{':
			if len(stack) == 0 && topStart < 0 {
				topStart = i
			}
			if recStart < 0 && len(stack) > 0 && stack[len(stack)-1] == '[' {
				recStart = i
				recDepth = len(stack)
			}
			stack = append(stack, '{')
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
			if recStart >= 0 && len(stack) == recDepth {
				spans = append(spans, text[recStart:i+1])
				recStart = -1
			}
			if len(stack) == 0 && topStart >= 0 {
				whole = append(whole, text[topStart:i+1])
				topStart = -1
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// Flush an unterminated candidate.
	switch {
	case recStart >= 0:
		spans = append(spans, text[recStart:])
	case topStart >= 0:
		whole = append(whole, text[topStart:])
	}

	if len(spans) > 0 {
		return spans
	}
	return whole
}

// salvageSpan turns one candidate span into a record. A locally valid span
// is accepted as-is; otherwise fields are recovered one by one through the
// anchor table. Returns ok=false when nothing could be recovered.
func salvageSpan(span string, pats []fieldPattern) (domain.Record, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err == nil {
		return domain.Record(obj), true
	}

	rec := make(domain.Record)
	for _, p := range pats {
		if v, ok := matchField(span, p); ok {
			rec[p.spec.name] = v
		}
	}
	if len(rec) == 0 {
		return nil, false
	}
	return rec, true
}

// matchField applies one field's anchor patterns to a span. Only positive,
// fully terminated matches count — absent beats guessed.
func matchField(span string, p fieldPattern) (any, bool) {
	if m := p.doubleQuoted.FindStringSubmatch(span); m != nil {
		if v, ok := cleanText(m[1], p.spec.kind); ok {
			return v, true
		}
	}
	if m := p.singleQuoted.FindStringSubmatch(span); m != nil {
		if v, ok := cleanText(m[1], p.spec.kind); ok {
			return v, true
		}
	}
	if p.bareScalar != nil {
		if m := p.bareScalar.FindStringSubmatch(span); m != nil {
			return scalarValue(m[1]), true
		}
	}
	return nil, false
}

// cleanText unescapes a captured string value and applies the text guard:
// values under 2 runes or purely numeric are rejected for text fields, so
// an ID is never mistaken for a query.
func cleanText(raw string, kind fieldKind) (string, bool) {
	s := unescape(raw)
	if kind == kindText {
		if utf8.RuneCountInString(s) < 2 || isDigits(s) {
			return "", false
		}
	}
	return s, true
}

func unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	// strconv.Unquote rejects \' — normalize it first.
	q := strings.ReplaceAll(raw, `\'`, `'`)
	if u, err := strconv.Unquote(`"` + q + `"`); err == nil {
		return u
	}
	return raw
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// scalarValue decodes a bare JSON scalar the way encoding/json would, so
// records from both salvage paths carry identical value types.
func scalarValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return f
}
