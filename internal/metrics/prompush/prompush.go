// Package prompush implements a metrics.Backend that accumulates Prometheus
// collectors in a private registry and pushes them to a Pushgateway on Flush.
//
// Batch jobs are short-lived, so they are not scraped. Pushing once at the
// end of the run is the usual Prometheus pattern for them.
package prompush

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"banketl/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// pusher is the seam used by tests to avoid a real Pushgateway.
type pusher interface {
	Push() error
}

// Backend implements metrics.Backend on top of client_golang.
type Backend struct {
	job      string
	registry *prometheus.Registry
	pusher   pusher

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labelKeys  map[string][]string
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend returns a backend pushing under job to the gateway at url.
func NewBackend(job, url string) (*Backend, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("prompush: empty pushgateway url")
	}
	if job == "" {
		job = "banketl"
	}
	reg := prometheus.NewRegistry()
	b := newBackend(job, reg)
	b.pusher = push.New(url, job).Gatherer(reg)
	return b, nil
}

func newBackend(job string, reg *prometheus.Registry) *Backend {
	return &Backend{
		job:        job,
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelKeys:  make(map[string][]string),
	}
}

// keysFor fixes the label set of a metric on first use. Later calls with a
// different label set are dropped, because client_golang rejects them.
func (b *Backend) keysFor(name string, labels metrics.Labels) ([]string, bool) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if prev, ok := b.labelKeys[name]; ok {
		return prev, strings.Join(prev, ",") == strings.Join(keys, ",")
	}
	b.labelKeys[name] = keys
	return keys, true
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	keys, ok := b.keysFor(name, labels)
	if !ok {
		return
	}
	vec, ok := b.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: "banketl counter " + name,
		}, keys)
		if err := b.registry.Register(vec); err != nil {
			return
		}
		b.counters[name] = vec
	}
	vec.With(prometheus.Labels(labels)).Add(delta)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	keys, ok := b.keysFor(name, labels)
	if !ok {
		return
	}
	vec, ok := b.histograms[name]
	if !ok {
		buckets := prometheus.DefBuckets
		if strings.HasSuffix(name, "_bytes") {
			buckets = prometheus.ExponentialBuckets(1024, 4, 8)
		}
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    "banketl histogram " + name,
			Buckets: buckets,
		}, keys)
		if err := b.registry.Register(vec); err != nil {
			return
		}
		b.histograms[name] = vec
	}
	vec.With(prometheus.Labels(labels)).Observe(value)
}

// Flush pushes the current registry contents, replacing the job's metrics
// on the gateway.
func (b *Backend) Flush() error {
	if b.pusher == nil {
		return nil
	}
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push job=%s: %w", b.job, err)
	}
	return nil
}
