package observability

import (
	"time"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the stylist BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	enforcement     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stylist_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_fallbacks_total",
				Help: "Total static fallbacks served instead of model output.",
			},
			[]string{"flow"},
		),
		enforcement: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylist_enforcement_actions_total",
				Help: "Total personalization rewrites applied to model output.",
			},
			[]string{"rule"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(usage domain.TokenUsage) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	m.tokensUsed.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrFallback counts a flow that served its static fallback.
func (m *Metrics) IncrFallback(flow string) {
	m.fallbacks.WithLabelValues(flow).Inc()
}

// RecordEnforcement counts the actions taken by personalization enforcement.
func (m *Metrics) RecordEnforcement(actions []domain.EnforcementAction) {
	for _, a := range actions {
		m.enforcement.WithLabelValues(a.Rule).Inc()
	}
}

// GetSnapshot returns the metrics summary served by GET /v1/metrics/stylist.
func (m *Metrics) GetSnapshot() *domain.StylistMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	success := getCounterValue(m.requestsTotal, "success")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := success + errorCount

	fallbacks := sumCounterVec(m.fallbacks)
	cacheHits := sumCounterVec(m.cacheHits)
	cacheMisses := sumCounterVec(m.cacheMisses)

	snapshot := &domain.StylistMetrics{
		TotalRequests:      int64(totalRequests),
		EnforcementActions: int64(sumCounterVec(m.enforcement)),
		Period:             "all_time",
	}
	if totalRequests > 0 {
		snapshot.AvgTokensPerRequest = (promptTokens + completionTokens) / totalRequests
		snapshot.ErrorRate = errorCount / totalRequests
		snapshot.FallbackRate = fallbacks / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		snapshot.CacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// Estimated cost: ~$2.50/1M prompt tokens, ~$10/1M completion tokens (GPT-4o)
	snapshot.EstimatedCostUsd = promptTokens/1e6*2.5 + completionTokens/1e6*10
	return snapshot
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
