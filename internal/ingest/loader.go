package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a successfully parsed source file. The raw bytes are kept
// alongside the decoded tree because shape detection needs top-level key
// order, which Go maps do not preserve.
type Document struct {
	Root any
	raw  []byte
}

// ParseOutcome is the tagged result of a structured parse attempt:
// either Parsed (Doc set) or Failed (Reason set). The expected fallback
// case is a value, not an error — only an unreadable file is an error.
type ParseOutcome struct {
	Doc    *Document
	Reason string
}

// Parsed reports whether the structured parse succeeded.
func (o ParseOutcome) Parsed() bool { return o.Doc != nil }

func parsed(doc *Document) ParseOutcome { return ParseOutcome{Doc: doc} }

func failed(reason string) ParseOutcome { return ParseOutcome{Reason: reason} }

// LoadFile reads a file fully and attempts a structured parse.
// The returned bytes are the comment-stripped content, for the salvage
// pass to scan if the parse failed.
func LoadFile(path string) (ParseOutcome, []byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return ParseOutcome{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := stripCommentLines(data)
	return LoadBytes(content), content, nil
}

// LoadBytes attempts to parse data as one complete JSON document.
// Any malformation — unterminated string, missing bracket, trailing
// comma, trailing garbage — yields Failed with no partial tree.
func LoadBytes(data []byte) ParseOutcome {
	dec := json.NewDecoder(bytes.NewReader(data))

	var root any
	if err := dec.Decode(&root); err != nil {
		return failed(err.Error())
	}
	if dec.More() {
		return failed("trailing data after document")
	}

	switch root.(type) {
	case map[string]any, []any:
		return parsed(&Document{Root: root, raw: data})
	default:
		return failed("top-level value is not an object or array")
	}
}

// stripCommentLines removes lines whose first non-blank characters are //.
// Sample datasets in the wild carry line comments that a strict parser
// would otherwise reject wholesale.
func stripCommentLines(data []byte) []byte {
	if !bytes.Contains(data, []byte("//")) {
		return data
	}
	lines := strings.Split(string(data), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}
	return []byte(strings.Join(kept, "\n"))
}
