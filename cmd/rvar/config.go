package main

import (
	"os"

	"github.com/vango-dev/rvar/internal/config"
	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/inspector"
)

const configFileHint = config.ConfigFileName + " (default: ./" + config.ConfigFileName + " if present)"

// loadConfig loads path, or rvar.yaml from the working directory when path
// is empty. Without a file the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.ConfigFileName); err == nil {
		return config.Load(config.ConfigFileName)
	}
	return config.Default(), nil
}

// newStore returns the snapshot store selected by cfg. Returns nil when no
// store is configured.
func newStore(cfg config.SnapshotConfig) inspector.SnapshotStore {
	switch {
	case cfg.Dir != "":
		return inspector.FileStore{Dir: cfg.Dir}
	case cfg.Bucket != "":
		client := inspector.NewS3Client(inspector.S3Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		return inspector.NewS3Store(client, cfg.Bucket, cfg.Prefix)
	default:
		return nil
	}
}

// requireStore is newStore failing with R300 when nothing is configured.
func requireStore(cfg *config.Config) (inspector.SnapshotStore, error) {
	store := newStore(cfg.Snapshot)
	if store == nil {
		e := errors.New("R300")
		if p := cfg.Path(); p != "" {
			e = e.WithLocation(p, 0)
		}
		return nil, e.WithSuggestion("Add a snapshot section to " + config.ConfigFileName)
	}
	return store, nil
}
