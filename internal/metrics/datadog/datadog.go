// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Metrics are buffered in memory and submitted on Flush. A background loop
// flushes on a ticker (default once per minute) and Close performs a final
// flush, so both a short banks_etl run and a long one produce usable series.
//
// Counters are submitted as Datadog COUNT series. Histograms are reduced to
// p50/p90/p99/max/samples gauges at flush time.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"banketl/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "banketl".
	JobName string

	// Tags are extra Datadog tags (e.g. "service:banks").
	Tags []string

	// FlushEvery is the periodic flush interval. Defaults to 60s.
	FlushEvery time.Duration

	// test seams
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the part of *datadogV2.MetricsApi the backend needs.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// seriesSpec maps one internal metric to its Datadog name and the label
// keys that become tags, in tag order.
type seriesSpec struct {
	name string
	tags []string
}

// forwarded lists the metrics this backend submits. Anything else is dropped.
var forwarded = map[string]seriesSpec{
	metrics.StepTotal:                  {"banketl.step.count", []string{"step", "status"}},
	metrics.StepDurationSeconds:        {"banketl.step.seconds", []string{"step", "status"}},
	metrics.RecordsTotal:               {"banketl.records.count", []string{"kind"}},
	metrics.HTTPRequestsTotal:          {"banketl.http.requests", []string{"status"}},
	metrics.HTTPRequestDurationSeconds: {"banketl.http.seconds", []string{"status"}},
	metrics.HTTPDownloadBytes:          {"banketl.http.bytes", []string{"status"}},
}

// seriesKey identifies one buffered series by Datadog name and its
// label-derived tags.
type seriesKey struct {
	name string
	tags string // "\x00"-joined "k:v" pairs
}

func newSeriesKey(metric string, labels metrics.Labels) (seriesKey, bool) {
	spec, ok := forwarded[metric]
	if !ok {
		return seriesKey{}, false
	}
	var sb strings.Builder
	for i, k := range spec.tags {
		v := labels[k]
		if v == "" {
			v = "unknown"
		}
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(k + ":" + v)
	}
	return seriesKey{name: spec.name, tags: sb.String()}, true
}

// buffer accumulates events between flushes.
type buffer struct {
	mu      sync.Mutex
	counts  map[seriesKey]float64
	samples map[seriesKey][]float64
}

func newBuffer() *buffer {
	return &buffer{counts: map[seriesKey]float64{}, samples: map[seriesKey][]float64{}}
}

func (bf *buffer) add(k seriesKey, delta float64) {
	bf.mu.Lock()
	bf.counts[k] += delta
	bf.mu.Unlock()
}

func (bf *buffer) observe(k seriesKey, v float64) {
	bf.mu.Lock()
	bf.samples[k] = append(bf.samples[k], v)
	bf.mu.Unlock()
}

// drain returns the buffered data and starts a new window.
func (bf *buffer) drain() (map[seriesKey]float64, map[seriesKey][]float64) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	c, s := bf.counts, bf.samples
	bf.counts, bf.samples = map[seriesKey]float64{}, map[seriesKey][]float64{}
	return c, s
}

func (bf *buffer) len() int {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return len(bf.counts) + len(bf.samples)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	buf *buffer
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush loop. API keys come from the DD_API_KEY /
// DD_APP_KEY environment, as read by the client's default context.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if parent == nil {
		return nil, wrapInitErr(fmt.Errorf("nil context"))
	}

	job := opts.JobName
	if job == "" {
		job = "banketl"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		buf:        newBuffer(),
	}
	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs a final Flush. Calling Close more
// than once only flushes.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	if k, ok := newSeriesKey(name, labels); ok {
		b.buf.add(k, delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	if k, ok := newSeriesKey(name, labels); ok {
		b.buf.observe(k, value)
	}
}

// Flush submits the buffered window. The window is discarded even when the
// submission fails.
func (b *Backend) Flush() error {
	counts, samples := b.buf.drain()
	if len(counts) == 0 && len(samples) == 0 {
		return nil
	}

	body := datadogV2.MetricPayload{Series: b.buildSeries(counts, samples, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, body, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// quantiles are the gauges a histogram window is reduced to, besides max
// and sample count.
var quantiles = []struct {
	suffix string
	q      float64
}{
	{".p50", 0.50},
	{".p90", 0.90},
	{".p99", 0.99},
}

// buildSeries renders one window, sorted by metric name then tags.
func (b *Backend) buildSeries(counts map[seriesKey]float64, samples map[seriesKey][]float64, ts int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(counts)+(len(quantiles)+2)*len(samples))
	count := datadogV2.METRICINTAKETYPE_COUNT
	gauge := datadogV2.METRICINTAKETYPE_GAUGE

	for k, v := range counts {
		out = append(out, point(k.name, count, v, b.tagsFor(k), ts))
	}
	for k, vals := range samples {
		if len(vals) == 0 {
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		tags := b.tagsFor(k)
		for _, q := range quantiles {
			out = append(out, point(k.name+q.suffix, gauge, nearestRank(sorted, q.q), tags, ts))
		}
		out = append(out,
			point(k.name+".max", gauge, sorted[len(sorted)-1], tags, ts),
			point(k.name+".samples", gauge, float64(len(sorted)), tags, ts),
		)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return strings.Join(out[i].Tags, ",") < strings.Join(out[j].Tags, ",")
	})
	return out
}

func (b *Backend) tagsFor(k seriesKey) []string {
	tags := append([]string(nil), b.baseTags...)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, "\x00")...)
	}
	return tags
}

func point(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(value)}},
		Tags:   tags,
	}
}

// nearestRank returns the q-quantile of sorted (ascending) values.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	return sorted[min(int(q*float64(n-1)+0.5), n-1)]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,service:etl".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
