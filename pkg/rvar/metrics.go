package rvar

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures runtime metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "rvar").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures runtime metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the update duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "rvar",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors of a runtime. A nil *Metrics
// records nothing.
type Metrics struct {
	updates          prometheus.Counter
	updateDuration   prometheus.Histogram
	updatePasses     prometheus.Histogram
	applied          prometheus.Counter
	discarded        prometheus.Counter
	deferred         prometheus.Counter
	hooksInvoked     prometheus.Counter
	hooksPruned      prometheus.Counter
	budgetExceeded   prometheus.Counter
	animationsActive prometheus.Gauge
}

// NewMetrics registers the runtime collectors.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	rt := rvar.NewRuntime(rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		updates: counter("updates_total", "Total number of runtime updates"),

		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Update duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		updatePasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_passes",
			Help:        "Queue drain passes per update",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),

		applied:        counter("modifications_applied_total", "Modify closures applied"),
		discarded:      counter("modifications_discarded_total", "Modify closures dropped by importance or budget"),
		deferred:       counter("modifications_deferred_total", "Modify closures moved to the next update"),
		hooksInvoked:   counter("hooks_invoked_total", "Hook callbacks invoked"),
		hooksPruned:    counter("hooks_pruned_total", "Dead hooks removed from hook lists"),
		budgetExceeded: counter("budget_exceeded_total", "Updates that hit the update budget"),

		animationsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "animations_active",
			Help:        "Animations currently registered",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) observeUpdate(stats UpdateStats, d time.Duration) {
	if m == nil {
		return
	}
	m.updates.Inc()
	m.updateDuration.Observe(d.Seconds())
	m.updatePasses.Observe(float64(stats.Passes))
	if stats.BudgetExceeded {
		m.budgetExceeded.Inc()
	}
}

func (m *Metrics) addApplied(n int) {
	if m != nil && n > 0 {
		m.applied.Add(float64(n))
	}
}

func (m *Metrics) addDiscarded(n int) {
	if m != nil && n > 0 {
		m.discarded.Add(float64(n))
	}
}

func (m *Metrics) addDeferred(n int) {
	if m != nil && n > 0 {
		m.deferred.Add(float64(n))
	}
}

func (m *Metrics) addHooks(invoked, pruned int) {
	if m == nil {
		return
	}
	if invoked > 0 {
		m.hooksInvoked.Add(float64(invoked))
	}
	if pruned > 0 {
		m.hooksPruned.Add(float64(pruned))
	}
}

func (m *Metrics) setAnimations(n int) {
	if m != nil {
		m.animationsActive.Set(float64(n))
	}
}
