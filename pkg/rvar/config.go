package rvar

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultFrameDuration is the animation frame interval, 60 frames per second.
const DefaultFrameDuration = time.Second / 60

// DefaultDispatchQueueSize is the capacity of the Dispatch queue.
const DefaultDispatchQueueSize = 256

// Config holds runtime settings. The zero value is not usable, start from
// DefaultConfig.
type Config struct {
	// FrameDuration is the interval between animation ticks.
	FrameDuration time.Duration

	// TimeScale multiplies elapsed animation time. Zero makes every
	// animation jump to its end.
	TimeScale float64

	// AnimationsEnabled is the initial value of the animations-enabled
	// variable. Disabled animations complete on their first tick.
	AnimationsEnabled bool

	// Budget limits the work done by a single update.
	Budget UpdateBudget

	// DispatchQueueSize is the capacity of the Dispatch queue.
	DispatchQueueSize int

	// Debug enables verbose logging.
	Debug DebugConfig
}

// DebugConfig controls debug logging.
type DebugConfig struct {
	// LogUpdates logs a line per update with its stats.
	LogUpdates bool

	// LogDiscarded logs every modify dropped by the importance rule.
	LogDiscarded bool
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		FrameDuration:     DefaultFrameDuration,
		TimeScale:         1.0,
		AnimationsEnabled: true,
		Budget:            DefaultUpdateBudget(),
		DispatchQueueSize: DefaultDispatchQueueSize,
	}
}

type runtimeOptions struct {
	config  Config
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	sink    UpdateSink
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeOptions)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) RuntimeOption {
	return func(o *runtimeOptions) {
		o.config = cfg
	}
}

// WithClock sets the clock used by animations.
func WithClock(clock Clock) RuntimeOption {
	return func(o *runtimeOptions) {
		o.clock = clock
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) RuntimeOption {
	return func(o *runtimeOptions) {
		o.metrics = m
	}
}

// WithTracer sets the OpenTelemetry tracer used for update spans.
// Default: the global tracer provider.
func WithTracer(tracer trace.Tracer) RuntimeOption {
	return func(o *runtimeOptions) {
		o.tracer = tracer
	}
}

// WithUpdateSink sets where widget subscriptions send their requests.
// Default: an UpdateRequests collector, see Runtime.TakeUpdateRequests.
func WithUpdateSink(sink UpdateSink) RuntimeOption {
	return func(o *runtimeOptions) {
		o.sink = sink
	}
}

// WithBudget sets the update budget.
func WithBudget(b UpdateBudget) RuntimeOption {
	return func(o *runtimeOptions) {
		o.config.Budget = b
	}
}

// WithFrameDuration sets the animation frame interval.
func WithFrameDuration(d time.Duration) RuntimeOption {
	return func(o *runtimeOptions) {
		o.config.FrameDuration = d
	}
}
