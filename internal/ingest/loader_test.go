package ingest

import (
	"strings"
	"testing"
)

func TestLoadBytes_WellFormedObject(t *testing.T) {
	out := LoadBytes([]byte(`{"conversation_turns": [{"id": 1, "query": "Q1"}]}`))
	if !out.Parsed() {
		t.Fatalf("expected parsed outcome, got failure: %s", out.Reason)
	}
	if _, ok := out.Doc.Root.(map[string]any); !ok {
		t.Errorf("expected object root, got %T", out.Doc.Root)
	}
}

func TestLoadBytes_WellFormedArray(t *testing.T) {
	out := LoadBytes([]byte(`[{"id": 1}, {"id": 2}]`))
	if !out.Parsed() {
		t.Fatalf("expected parsed outcome, got failure: %s", out.Reason)
	}
	seq, ok := out.Doc.Root.([]any)
	if !ok {
		t.Fatalf("expected array root, got %T", out.Doc.Root)
	}
	if len(seq) != 2 {
		t.Errorf("expected 2 elements, got %d", len(seq))
	}
}

func TestLoadBytes_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `{"id": 1, "query": "oops}`},
		{"missing closing bracket", `[{"id": 1}, {"id": 2}`},
		{"trailing comma", `[{"id": 1},]`},
		{"trailing garbage", `{"id": 1} and then some`},
		{"second document", `{"id": 1} {"id": 2}`},
		{"top-level scalar", `42`},
		{"top-level string", `"hello"`},
		{"empty input", ``},
		{"whitespace only", "  \n\t "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := LoadBytes([]byte(tc.input))
			if out.Parsed() {
				t.Fatalf("expected failure for %q", tc.input)
			}
			if out.Doc != nil {
				t.Error("failed outcome must carry no partial tree")
			}
			if out.Reason == "" {
				t.Error("failed outcome must carry a reason")
			}
		})
	}
}

func TestStripCommentLines(t *testing.T) {
	input := "// header comment\n{\"id\": 1,\n  // inline note\n\"query\": \"Q1\"}\n"
	got := string(stripCommentLines([]byte(input)))

	if strings.Contains(got, "header comment") || strings.Contains(got, "inline note") {
		t.Errorf("comments not stripped: %q", got)
	}
	if out := LoadBytes([]byte(got)); !out.Parsed() {
		t.Errorf("stripped content should parse, got: %s", out.Reason)
	}
}

func TestStripCommentLines_LeavesURLsAlone(t *testing.T) {
	input := `{"url": "https://example.com/path"}`
	got := string(stripCommentLines([]byte(input)))
	if got != input {
		t.Errorf("content without comment lines must pass through unchanged, got %q", got)
	}
}
