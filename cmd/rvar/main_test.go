package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/rvar/internal/config"
	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/inspector"
	"github.com/vango-dev/rvar/pkg/rvar"
	"github.com/vango-dev/rvar/pkg/rvartest"
)

func TestRunDemo(t *testing.T) {
	var buf bytes.Buffer
	if err := runDemo(&buf, config.Default(), 30, 15); err != nil {
		t.Fatalf("run demo: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 30 {
		t.Fatalf("expected 30 lines, got %d", len(lines))
	}
	last := lines[len(lines)-1]
	for _, want := range []string{"frame   30", "count=2", "mirror=2", "doubled=4", "animating=true"} {
		if !strings.Contains(last, want) {
			t.Errorf("expected %q in %q", want, last)
		}
	}
}

func TestDemoCmd_InvalidFrames(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"demo", "--frames=0"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Code != "R200" {
		t.Errorf("expected R200, got %s", e.Code)
	}
}

func TestVersionCmd_Short(t *testing.T) {
	var buf bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs([]string{"version", "--short"})
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if buf.String() != "dev\n" {
		t.Errorf("expected dev, got %q", buf.String())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Inspector.Addr != config.DefaultInspectorAddr {
		t.Errorf("expected default addr, got %s", cfg.Inspector.Addr)
	}

	data := []byte("inspector:\n  addr: 127.0.0.1:9999\n")
	if err := os.WriteFile(config.ConfigFileName, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("load working directory file: %v", err)
	}
	if cfg.Inspector.Addr != "127.0.0.1:9999" {
		t.Errorf("expected addr from file, got %s", cfg.Inspector.Addr)
	}

	_, err = loadConfig("missing.yaml")
	if e, ok := err.(*errors.Error); !ok || e.Code != "R100" {
		t.Errorf("expected R100, got %v", err)
	}
}

func TestNewStore(t *testing.T) {
	if store := newStore(config.SnapshotConfig{}); store != nil {
		t.Errorf("expected no store, got %T", store)
	}
	if _, ok := newStore(config.SnapshotConfig{Dir: "out"}).(inspector.FileStore); !ok {
		t.Error("expected a FileStore for snapshot.dir")
	}
	if _, ok := newStore(config.SnapshotConfig{Bucket: "b", Region: "us-east-1"}).(*inspector.S3Store); !ok {
		t.Error("expected an S3Store for snapshot.bucket")
	}
}

func TestRequireStore(t *testing.T) {
	_, err := requireStore(config.Default())
	if e, ok := err.(*errors.Error); !ok || e.Code != "R300" {
		t.Errorf("expected R300, got %v", err)
	}
}

func TestExportRemote(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	in.Watch("count", rvar.New(h.Runtime, 3)).Perm()
	server := httptest.NewServer(in.Handler())
	defer server.Close()

	dir := t.TempDir()
	key, err := exportRemote(context.Background(), server.Client(), server.URL, inspector.FileStore{Dir: dir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.Contains(string(data), `"count"`) {
		t.Errorf("expected count in snapshot, got %s", data)
	}
}

func TestExportRemote_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	addr := strings.TrimPrefix(server.URL, "http://")
	_, err := exportRemote(context.Background(), server.Client(), addr, inspector.FileStore{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected a 404 error, got %v", err)
	}
}
