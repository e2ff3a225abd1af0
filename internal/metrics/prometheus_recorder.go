package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	fetchDuration *prom.HistogramVec
	fetchOutcomes *prom.CounterVec
	hydration     *prom.CounterVec
	storeWrites   *prom.CounterVec
	writeDuration *prom.HistogramVec
	pendingWrites prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.fetchDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "kennel",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote fetches, including cache lookups",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint"})
		pr.fetchOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kennel",
			Name:      "fetch_outcomes_total",
			Help:      "Fetch results by source (network, cache hit, cache fallback) or failure",
		}, []string{"endpoint", "outcome"})
		pr.hydration = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kennel",
			Name:      "hydration_total",
			Help:      "Per-key results of loading persisted state at startup",
		}, []string{"key", "result"})
		pr.storeWrites = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kennel",
			Name:      "store_writes_total",
			Help:      "Write-through attempts by key and success",
		}, []string{"key", "success"})
		pr.writeDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "kennel",
			Name:      "store_write_duration_seconds",
			Help:      "Duration of individual store writes",
			Buckets:   prom.DefBuckets,
		}, []string{"key"})
		pr.pendingWrites = prom.NewGauge(prom.GaugeOpts{
			Namespace: "kennel",
			Name:      "pending_writes",
			Help:      "Keys with a snapshot waiting to be written",
		})
		reg.MustRegister(pr.fetchDuration, pr.fetchOutcomes, pr.hydration, pr.storeWrites, pr.writeDuration, pr.pendingWrites)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveFetchDuration(endpoint string, d time.Duration) {
	if p == nil || p.fetchDuration == nil {
		return
	}
	p.fetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFetchOutcome(endpoint string, outcome FetchOutcome) {
	if p == nil || p.fetchOutcomes == nil {
		return
	}
	p.fetchOutcomes.WithLabelValues(endpoint, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncHydration(key string, result HydrationResult) {
	if p == nil || p.hydration == nil {
		return
	}
	p.hydration.WithLabelValues(key, string(result)).Inc()
}

func (p *PrometheusRecorder) IncStoreWrite(key string, success bool) {
	if p == nil || p.storeWrites == nil {
		return
	}
	p.storeWrites.WithLabelValues(key, strconv.FormatBool(success)).Inc()
}

func (p *PrometheusRecorder) ObserveStoreWriteDuration(key string, d time.Duration) {
	if p == nil || p.writeDuration == nil {
		return
	}
	p.writeDuration.WithLabelValues(key).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetPendingWrites(n int) {
	if p == nil || p.pendingWrites == nil {
		return
	}
	p.pendingWrites.Set(float64(n))
}
