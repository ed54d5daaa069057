package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/rvar"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Runtime.FrameDuration != rvar.DefaultFrameDuration {
		t.Errorf("Runtime.FrameDuration = %v, want %v", cfg.Runtime.FrameDuration, rvar.DefaultFrameDuration)
	}
	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
	if cfg.Inspector.History != DefaultHistory {
		t.Errorf("Inspector.History = %d, want %d", cfg.Inspector.History, DefaultHistory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, ConfigFileName))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "R100" {
		t.Fatalf("expected R100 for a missing file, got %v", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	content := `runtime:
  frame_duration: 8ms
  time_scale: 0.5
  animations_enabled: false
  budget:
    max_passes: 16
    mode: discard
log:
  level: debug
  format: json
inspector:
  addr: ":9090"
snapshot:
  bucket: snaps
  prefix: dev/
  path_style: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if cfg.Runtime.FrameDuration != 8*time.Millisecond {
		t.Errorf("Runtime.FrameDuration = %v, want 8ms", cfg.Runtime.FrameDuration)
	}
	if cfg.Inspector.Addr != ":9090" {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, ":9090")
	}
	if cfg.Inspector.History != DefaultHistory {
		t.Errorf("Inspector.History = %d, want default %d", cfg.Inspector.History, DefaultHistory)
	}
	if cfg.Snapshot.Bucket != "snaps" || !cfg.Snapshot.PathStyle {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}

	rc := cfg.Runtime.ToRuntime()
	if rc.TimeScale != 0.5 {
		t.Errorf("TimeScale = %v, want 0.5", rc.TimeScale)
	}
	if rc.AnimationsEnabled {
		t.Error("AnimationsEnabled should be false")
	}
	if rc.Budget.MaxPasses != 16 || rc.Budget.Mode != rvar.BudgetDiscard {
		t.Errorf("Budget = %+v", rc.Budget)
	}
	if rc.DispatchQueueSize != rvar.DefaultDispatchQueueSize {
		t.Errorf("DispatchQueueSize = %d, want %d", rc.DispatchQueueSize, rvar.DefaultDispatchQueueSize)
	}
}

func TestLoad_InvalidYAMLPointsAtLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := "runtime:\n  time_scale: 1\n  frame_duration: fast\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if e.Code != "R101" {
		t.Errorf("Code = %q, want R101", e.Code)
	}
	if e.Location == nil || e.Location.Line != 3 {
		t.Errorf("Location = %+v, want line 3", e.Location)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("inspector:\n  history: 8\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Inspector.History != 8 {
		t.Errorf("Inspector.History = %d, want 8", cfg.Inspector.History)
	}
	if cfg.Runtime.TimeScale != 1 {
		t.Errorf("Runtime.TimeScale = %v, want 1", cfg.Runtime.TimeScale)
	}
	if !cfg.Runtime.ToRuntime().AnimationsEnabled {
		t.Error("AnimationsEnabled should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"negative time scale", "runtime:\n  time_scale: -1\n", "time_scale"},
		{"negative budget", "runtime:\n  budget:\n    max_passes: -1\n", "budget"},
		{"bad budget mode", "runtime:\n  budget:\n    mode: sometimes\n", "defer or discard"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"prefix without bucket", "snapshot:\n  prefix: a/\n", "snapshot.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Code != "R102" {
				t.Fatalf("expected R102, got %v", err)
			}
			if !strings.Contains(e.Detail, tt.wantErr) {
				t.Errorf("Detail = %q, want it to mention %q", e.Detail, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var b strings.Builder
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&b)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := b.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected json record, got %s", out)
	}
}
