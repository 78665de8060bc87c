// Package telemetry exposes pipeline counters through an OpenTelemetry meter
// backed by a Prometheus exporter.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/steveyiyo/wordcards-backend"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	memoHits      metric.Int64Counter
	memoMisses    metric.Int64Counter
	memoShared    metric.Int64Counter
	storeHits     metric.Int64Counter
	storeMisses   metric.Int64Counter
	storeConflict metric.Int64Counter
	synthCalls    metric.Int64Counter
	synthFailures metric.Int64Counter
	synthLatency  metric.Float64Histogram
}

// Setup registers a fresh Prometheus registry and returns the metrics and the
// handler that serves it.
func Setup() (*Metrics, http.Handler, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	m, err := newMetrics(provider)
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func newMetrics(provider *sdkmetric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{provider: provider}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.memoHits, "tts_memo_hits", "In-process memo cache hits."},
		{&m.memoMisses, "tts_memo_misses", "In-process memo cache misses."},
		{&m.memoShared, "tts_memo_shared_flights", "Callers that joined an in-flight synthesis."},
		{&m.storeHits, "tts_store_hits", "Object store lookups that found the clip."},
		{&m.storeMisses, "tts_store_misses", "Object store lookups that missed."},
		{&m.storeConflict, "tts_store_conflicts", "Uploads rejected because the object already existed."},
		{&m.synthCalls, "tts_synthesis_calls", "Calls to the synthesis backend."},
		{&m.synthFailures, "tts_synthesis_failures", "Failed calls to the synthesis backend."},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}
	m.synthLatency, err = meter.Float64Histogram("tts_synthesis_seconds",
		metric.WithDescription("Synthesis backend latency."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func backendAttr(backend string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("backend", backend))
}

func (m *Metrics) MemoHit(ctx context.Context) {
	if m != nil {
		m.memoHits.Add(ctx, 1)
	}
}

func (m *Metrics) MemoMiss(ctx context.Context) {
	if m != nil {
		m.memoMisses.Add(ctx, 1)
	}
}

func (m *Metrics) MemoShared(ctx context.Context) {
	if m != nil {
		m.memoShared.Add(ctx, 1)
	}
}

func (m *Metrics) StoreHit(ctx context.Context, store string) {
	if m != nil {
		m.storeHits.Add(ctx, 1, backendAttr(store))
	}
}

func (m *Metrics) StoreMiss(ctx context.Context, store string) {
	if m != nil {
		m.storeMisses.Add(ctx, 1, backendAttr(store))
	}
}

func (m *Metrics) StoreConflict(ctx context.Context, store string) {
	if m != nil {
		m.storeConflict.Add(ctx, 1, backendAttr(store))
	}
}

func (m *Metrics) Synthesis(ctx context.Context, backend string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.synthCalls.Add(ctx, 1, backendAttr(backend))
	m.synthLatency.Record(ctx, took.Seconds(), backendAttr(backend))
	if err != nil {
		m.synthFailures.Add(ctx, 1, backendAttr(backend))
	}
}
