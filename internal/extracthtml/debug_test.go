package extracthtml

import (
	"bytes"
	"strings"
	"testing"
)

// TestDebugPrintTables lists every candidate with the header text the
// match policy operates on.
func TestDebugPrintTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := DebugPrintTables(&buf, banksPage(2), ""); err != nil {
		t.Fatalf("DebugPrintTables: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 tables, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "[0] rows=2") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], `"rank bank name market cap(us$ billion)"`) {
		t.Fatalf("unexpected header text: %q", lines[1])
	}
}
