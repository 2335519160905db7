package kbquery

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/metrics"
)

// Outcome labels. Composite errors resolve to the first matching entry.
const (
	outcomeOK                 = "ok"
	outcomeInvalidQuery       = "invalid_query"
	outcomeUnsupportedFilter  = "unsupported_filter"
	outcomeCollectionNotFound = "collection_not_found"
	outcomeEmbedding          = "embedding"
	outcomeMalformed          = "malformed"
	outcomeStore              = "store"
	outcomeError              = "error"
)

var outcomes = []struct {
	sentinel error
	label    string
}{
	{domain.ErrInvalidQuery, outcomeInvalidQuery},
	{domain.ErrUnsupportedFilter, outcomeUnsupportedFilter},
	{domain.ErrCollectionNotFound, outcomeCollectionNotFound},
	{domain.ErrEmbedding, outcomeEmbedding},
	{domain.ErrMalformedResult, outcomeMalformed},
	{domain.ErrStoreQuery, outcomeStore},
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	for _, o := range outcomes {
		if errors.Is(err, o.sentinel) {
			return o.label
		}
	}
	return outcomeError
}

type sdkMetrics struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	returned *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "Client calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "Client call latency, embedding and search included.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		returned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sdk",
			Name:      "results_returned",
			Help:      "Records returned per successful call.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.returned); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("kbquery: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("kbquery: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records client calls to slog and, when a registerer is set, Prometheus.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call tracks one client operation from start to end.
type call struct {
	obs     *observer
	op      string
	start   time.Time
	results int
	attrs   []any
}

// begin starts a call. A nil observer yields a call whose end is a no-op.
func (o *observer) begin(op string, attrs ...any) *call {
	return &call{obs: o, op: op, start: time.Now(), results: -1, attrs: attrs}
}

// returned records how many records the call produced.
func (c *call) returned(n int) { c.results = n }

func (c *call) end(err error) {
	o := c.obs
	if o == nil {
		return
	}
	dur := time.Since(c.start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(c.op, outcome).Inc()
		o.metrics.latency.WithLabelValues(c.op).Observe(dur.Seconds())
		if err == nil && c.results >= 0 {
			o.metrics.returned.WithLabelValues(c.op).Observe(float64(c.results))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := append([]any{"op", c.op, "outcome", outcome, "duration", dur}, c.attrs...)
	if err != nil {
		o.logger.Warn("kbquery call failed", append(attrs, "error", err)...)
		return
	}
	if c.results >= 0 {
		attrs = append(attrs, "results", c.results)
	}
	o.logger.Debug("kbquery call", attrs...)
}
