// Package setup selects and installs the metrics backend for a command run.
package setup

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"banketl/internal/metrics"
	"banketl/internal/metrics/datadog"
	"banketl/internal/metrics/prompush"
)

// DefaultPushGatewayURL is used when neither flag nor env names a gateway.
const DefaultPushGatewayURL = "http://localhost:9091"

// Options selects the backend.
type Options struct {
	// Job is the metrics job name ("job:<name>" tag, Pushgateway job).
	Job string
	// Backend is none, datadog (dd) or pushgateway (prompush). Empty falls
	// back to env METRICS_BACKEND, then none.
	Backend string
	// PushGatewayURL falls back to env PUSHGATEWAY_URL, then
	// DefaultPushGatewayURL.
	PushGatewayURL string
}

type closer interface {
	Close() error
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (closer, error) {
		return datadog.NewBackend(ctx, opts)
	}
	newPushBackend = func(job, url string) (closer, error) {
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			return nil, err
		}
		return flushCloser{b}, nil
	}
	setMetricsBackend = func(b any) {
		mb, _ := b.(metrics.Backend)
		metrics.SetBackend(mb)
	}
	logPrintf = log.Printf
)

// flushCloser adapts the push backend: closing it pushes once.
type flushCloser struct{ *prompush.Backend }

func (f flushCloser) Close() error { return f.Flush() }

// Init installs the selected backend and returns a cleanup that flushes
// and closes it. cleanup is never nil and is safe to call on error.
// Failures during cleanup are logged, not returned.
func Init(ctx context.Context, o Options) (cleanup func(), err error) {
	cleanup = func() {}

	name := strings.ToLower(strings.TrimSpace(o.Backend))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_BACKEND")))
	}

	switch name {
	case "", "none", "noop":
		return cleanup, nil

	case "datadog", "dd":
		tags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    o.Job,
			Tags:       tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return cleanup, fmt.Errorf("datadog backend: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	case "pushgateway", "prompush":
		url := strings.TrimSpace(o.PushGatewayURL)
		if url == "" {
			url = strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL"))
		}
		if url == "" {
			url = DefaultPushGatewayURL
		}
		b, err := newPushBackend(o.Job, url)
		if err != nil {
			return cleanup, fmt.Errorf("pushgateway backend: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: pushgateway push error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		return cleanup, fmt.Errorf("unknown metrics backend %q (want none|datadog|pushgateway)", name)
	}
}
