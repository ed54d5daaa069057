package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/rvar"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "rvar.yaml"

	// DefaultInspectorAddr is where the inspector listens by default.
	DefaultInspectorAddr = "127.0.0.1:7070"

	// DefaultHistory is how many values the inspector keeps per variable.
	DefaultHistory = 64
)

// Config is the content of rvar.yaml.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Log       LogConfig       `yaml:"log"`
	Inspector InspectorConfig `yaml:"inspector"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`

	path string
}

// RuntimeConfig mirrors rvar.Config.
type RuntimeConfig struct {
	// FrameDuration is the animation frame interval.
	FrameDuration time.Duration `yaml:"frame_duration"`

	// TimeScale multiplies elapsed animation time.
	TimeScale float64 `yaml:"time_scale"`

	// AnimationsEnabled is nil when the file does not set it.
	AnimationsEnabled *bool `yaml:"animations_enabled"`

	DispatchQueueSize int          `yaml:"dispatch_queue_size"`
	Budget            BudgetConfig `yaml:"budget"`
	Debug             DebugConfig  `yaml:"debug"`
}

// BudgetConfig mirrors rvar.UpdateBudget.
type BudgetConfig struct {
	MaxPasses         int `yaml:"max_passes"`
	MaxModifications  int `yaml:"max_modifications"`
	MaxSendsPerSecond int `yaml:"max_sends_per_second"`

	// Mode is "defer" or "discard".
	Mode string `yaml:"mode"`
}

// DebugConfig mirrors rvar.DebugConfig.
type DebugConfig struct {
	LogUpdates   bool `yaml:"log_updates"`
	LogDiscarded bool `yaml:"log_discarded"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// InspectorConfig configures the inspector server.
type InspectorConfig struct {
	Addr    string `yaml:"addr"`
	History int    `yaml:"history"`
}

// SnapshotConfig selects where snapshots are exported. Dir writes files
// locally, Bucket uploads to S3. Dir wins when both are set.
type SnapshotConfig struct {
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	def := rvar.DefaultConfig()
	enabled := def.AnimationsEnabled
	return &Config{
		Runtime: RuntimeConfig{
			FrameDuration:     def.FrameDuration,
			TimeScale:         def.TimeScale,
			AnimationsEnabled: &enabled,
			DispatchQueueSize: def.DispatchQueueSize,
			Budget: BudgetConfig{
				MaxPasses: def.Budget.MaxPasses,
				Mode:      def.Budget.Mode.String(),
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{
			Addr:    DefaultInspectorAddr,
			History: DefaultHistory,
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R100").
				WithLocation(path, 0).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use the defaults")
		}
		return nil, errors.New("R101").WithLocation(path, 0).Wrap(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		e := errors.FromError(err, "R101")
		return nil, e.WithLocationFromYAML(path, e.Wrapped)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R101").
			Wrap(err).
			WithSuggestion("Durations are written like 16ms or 1s")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// applyDefaults fills in fields an explicit zero would make unusable.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Runtime.FrameDuration == 0 {
		c.Runtime.FrameDuration = def.Runtime.FrameDuration
	}
	if c.Runtime.DispatchQueueSize == 0 {
		c.Runtime.DispatchQueueSize = def.Runtime.DispatchQueueSize
	}
	if c.Runtime.AnimationsEnabled == nil {
		c.Runtime.AnimationsEnabled = def.Runtime.AnimationsEnabled
	}
	if c.Runtime.Budget.Mode == "" {
		c.Runtime.Budget.Mode = def.Runtime.Budget.Mode
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = def.Inspector.Addr
	}
	if c.Inspector.History == 0 {
		c.Inspector.History = def.Inspector.History
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("R102").WithDetail(fmt.Sprintf(format, args...))
	}

	r := c.Runtime
	if r.FrameDuration < 0 {
		return invalid("runtime.frame_duration must not be negative, got %s", r.FrameDuration)
	}
	if r.TimeScale < 0 {
		return invalid("runtime.time_scale must not be negative, got %g", r.TimeScale)
	}
	if r.DispatchQueueSize < 0 {
		return invalid("runtime.dispatch_queue_size must not be negative, got %d", r.DispatchQueueSize)
	}
	b := r.Budget
	if b.MaxPasses < 0 || b.MaxModifications < 0 || b.MaxSendsPerSecond < 0 {
		return invalid("runtime.budget limits must not be negative")
	}
	if _, err := parseBudgetMode(b.Mode); err != nil {
		return invalid("%v", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid("%v", err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		return invalid("log.format must be text or json, got %q", f)
	}
	if c.Inspector.History < 0 {
		return invalid("inspector.history must not be negative, got %d", c.Inspector.History)
	}
	if c.Snapshot.Dir == "" && c.Snapshot.Bucket == "" && (c.Snapshot.Prefix != "" || c.Snapshot.Endpoint != "") {
		return invalid("snapshot.prefix and snapshot.endpoint need snapshot.bucket")
	}
	return nil
}

// ToRuntime converts the runtime section to an rvar.Config.
func (r RuntimeConfig) ToRuntime() rvar.Config {
	cfg := rvar.DefaultConfig()
	cfg.FrameDuration = r.FrameDuration
	cfg.TimeScale = r.TimeScale
	if r.AnimationsEnabled != nil {
		cfg.AnimationsEnabled = *r.AnimationsEnabled
	}
	cfg.DispatchQueueSize = r.DispatchQueueSize
	mode, _ := parseBudgetMode(r.Budget.Mode)
	cfg.Budget = rvar.UpdateBudget{
		MaxPasses:         r.Budget.MaxPasses,
		MaxModifications:  r.Budget.MaxModifications,
		MaxSendsPerSecond: r.Budget.MaxSendsPerSecond,
		Mode:              mode,
	}
	cfg.Debug = rvar.DebugConfig{
		LogUpdates:   r.Debug.LogUpdates,
		LogDiscarded: r.Debug.LogDiscarded,
	}
	return cfg
}

// NewLogger builds the slog logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(l.Level)
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseBudgetMode(s string) (rvar.BudgetMode, error) {
	switch strings.ToLower(s) {
	case "", "defer":
		return rvar.BudgetDefer, nil
	case "discard":
		return rvar.BudgetDiscard, nil
	default:
		return 0, fmt.Errorf("runtime.budget.mode must be defer or discard, got %q", s)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
