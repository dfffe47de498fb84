// Package metrics provides Prometheus metrics for the rewards subsystem.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns the metric vectors and their registry.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	eventsPublished  *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	eventsProcessed  prometheus.Counter
	managerFailures  *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	drainBatches     prometheus.Counter
	drainSkipped     prometheus.Counter
	completions      *prometheus.CounterVec
	trendingDuration prometheus.Histogram
	trendingRuns     *prometheus.CounterVec
}

// NewManager creates a metrics manager and registers all vectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "rewards",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_published_total",
		Help:      "Events accepted by the bus, by kind.",
	}, []string{"kind"})
	m.eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_dropped_total",
		Help:      "Malformed events dropped at dispatch, by reason.",
	}, []string{"reason"})
	m.eventsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_processed_total",
		Help:      "Events popped from the durable queue and delivered.",
	})
	m.managerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "manager_failures_total",
		Help:      "Challenge manager invocations that returned an error, by challenge.",
	}, []string{"challenge"})
	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "queue_depth",
		Help:      "Entries currently in the durable event queue.",
	})
	m.drainBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "drain_batches_total",
		Help:      "Completed drain cycles.",
	})
	m.drainSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "drain_skipped_total",
		Help:      "Drain cycles skipped because the advisory lock was held.",
	})
	m.completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "challenge_completions_total",
		Help:      "UserChallenge rows newly marked complete, by challenge.",
	}, []string{"challenge"})
	m.trendingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "trending_generation_seconds",
		Help:      "Wall time of one trending generation pass.",
		Buckets:   prometheus.DefBuckets,
	})
	m.trendingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "trending_runs_total",
		Help:      "Trending generation passes, by type and range.",
	}, []string{"type", "range"})

	m.registry.MustRegister(
		m.eventsPublished, m.eventsDropped, m.eventsProcessed,
		m.managerFailures, m.queueDepth, m.drainBatches, m.drainSkipped,
		m.completions, m.trendingDuration, m.trendingRuns,
	)
	return m
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager, creating it on first use.
func Default() *Manager {
	defaultOnce.Do(func() {
		if defaultManager == nil {
			defaultManager = NewManager()
		}
	})
	return defaultManager
}

// SetDefault installs a manager as the process-wide default. Must be called
// before the first Default() use (e.g. in tests with a private registry).
func SetDefault(m *Manager) { defaultManager = m }

// Package-level record helpers on the default manager.

func RecordEventPublished(kind string) { Default().eventsPublished.WithLabelValues(kind).Inc() }

func RecordEventDropped(reason string) { Default().eventsDropped.WithLabelValues(reason).Inc() }

func RecordEventProcessed() { Default().eventsProcessed.Inc() }

func RecordManagerFailure(challenge string) {
	Default().managerFailures.WithLabelValues(challenge).Inc()
}

func UpdateQueueDepth(n int) { Default().queueDepth.Set(float64(n)) }

func RecordDrainBatch() { Default().drainBatches.Inc() }

func RecordDrainSkipped() { Default().drainSkipped.Inc() }

func RecordCompletion(challenge string) {
	Default().completions.WithLabelValues(challenge).Inc()
}

func ObserveTrendingDuration(seconds float64) { Default().trendingDuration.Observe(seconds) }

func RecordTrendingRun(typ, rng string) { Default().trendingRuns.WithLabelValues(typ, rng).Inc() }
