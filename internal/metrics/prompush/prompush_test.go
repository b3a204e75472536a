package prompush

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"banketl/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type fakePusher struct {
	calls int
	err   error
}

func (f *fakePusher) Push() error {
	f.calls++
	return f.err
}

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]int {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]int{}
	for _, mf := range mfs {
		out[mf.GetName()] = len(mf.GetMetric())
	}
	return out
}

func TestBackend_RegistersCountersAndHistograms(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	b := newBackend("banks", reg)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "extract", "status": "ok"})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "ok"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.2, metrics.Labels{"step": "extract", "status": "ok"})
	b.ObserveHistogram(metrics.HTTPDownloadBytes, 2048, metrics.Labels{"status": "200"})

	names := gatherNames(t, reg)
	if names[metrics.StepTotal] != 2 {
		t.Fatalf("expected 2 step series, got %v", names)
	}
	if names[metrics.StepDurationSeconds] != 1 || names[metrics.HTTPDownloadBytes] != 1 {
		t.Fatalf("missing histograms: %v", names)
	}
}

func TestBackend_DropsMismatchedLabelSets(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	b := newBackend("banks", reg)

	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "extracted"})
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "x", "extra": "y"})

	if got := gatherNames(t, reg)[metrics.RecordsTotal]; got != 1 {
		t.Fatalf("expected 1 series, got %d", got)
	}
}

func TestFlush_WrapsPushError(t *testing.T) {
	t.Parallel()

	b := newBackend("banks", prometheus.NewRegistry())
	fp := &fakePusher{err: errors.New("gateway down")}
	b.pusher = fp

	err := b.Flush()
	if err == nil || !strings.Contains(err.Error(), "job=banks") {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp.calls != 1 {
		t.Fatalf("expected 1 push, got %d", fp.calls)
	}
}

func TestNewBackend_PushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		paths  []string
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(b))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	b, err := NewBackend("banks", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "extract", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || !strings.Contains(paths[0], "/metrics/job/banks") {
		t.Fatalf("unexpected push paths: %v", paths)
	}
	if len(bodies[0]) == 0 {
		t.Fatalf("expected non-empty push body")
	}
}

func TestNewBackend_RejectsEmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("banks", " "); err == nil {
		t.Fatalf("expected error")
	}
}
