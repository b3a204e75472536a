package progress

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLog_AppendsFormattedLines(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "code_log.txt")
	ts := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.UTC)
	l := New(p, WithClock(func() time.Time { return ts }))

	l.Log("Preliminaries complete. Initiating ETL process")
	l.Log("Process Complete")

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "2024-Mar-07-09:05:03 : Preliminaries complete. Initiating ETL process\n" +
		"2024-Mar-07-09:05:03 : Process Complete\n"
	if string(b) != want {
		t.Fatalf("unexpected log:\nwant=%q\ngot=%q", want, string(b))
	}
}

func TestLog_PreservesExistingContent(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "code_log.txt")
	if err := os.WriteFile(p, []byte("earlier run\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	New(p).Log("again")

	b, _ := os.ReadFile(p)
	if !strings.HasPrefix(string(b), "earlier run\n") || !strings.HasSuffix(string(b), " : again\n") {
		t.Fatalf("expected append, got %q", string(b))
	}
}

// TestLog_WriteFailureIsReportedNotReturned covers the best-effort contract:
// an unwritable path is logged and the call still returns normally.
func TestLog_WriteFailureIsReportedNotReturned(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := filepath.Join(t.TempDir(), "missing-dir", "code_log.txt")
	l := New(p, WithErrorLogger(log.New(&buf, "", 0)))

	l.Log("Data saved to CSV file")

	if !strings.Contains(buf.String(), "progress: open") {
		t.Fatalf("expected reported failure, got %q", buf.String())
	}
}

func TestLog_EmptyPathAndNilAreNoops(t *testing.T) {
	t.Parallel()

	New("").Log("dropped")
	var l *Log
	l.Log("dropped")
}
