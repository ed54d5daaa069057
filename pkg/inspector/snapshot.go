package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/rvar/pkg/rvar"
)

// Snapshot is the state of every watched variable at one point in time.
type Snapshot struct {
	Taken   time.Time           `json:"taken"`
	Epoch   rvar.UpdateID       `json:"epoch"`
	Stats   rvar.UpdateStats    `json:"stats"`
	Vars    []VarState          `json:"vars"`
	History map[string][]Change `json:"history,omitempty"`
}

// Key returns the object name the snapshot is stored under.
func (s Snapshot) Key() string {
	return fmt.Sprintf("snapshot-%s-e%d.json", s.Taken.UTC().Format("20060102T150405Z"), s.Epoch)
}

// Snapshot captures the current state. Safe to call from any goroutine.
func (in *Inspector) Snapshot() Snapshot {
	s := Snapshot{
		Taken: in.rt.Clock().Now(),
		Epoch: in.rt.Epoch(),
		Stats: in.rt.LastUpdateStats(),
		Vars:  in.Vars(),
	}
	in.mu.RLock()
	for name, w := range in.vars {
		if len(w.history) == 0 {
			continue
		}
		if s.History == nil {
			s.History = make(map[string][]Change)
		}
		s.History[name] = append([]Change(nil), w.history...)
	}
	in.mu.RUnlock()
	return s
}

// SnapshotStore persists encoded snapshots.
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Export captures a snapshot and writes it to store. Returns the key it
// was stored under.
func (in *Inspector) Export(ctx context.Context, store SnapshotStore) (string, error) {
	s := in.Snapshot()
	key, err := Save(ctx, store, s)
	if err != nil {
		return "", err
	}
	in.logger.Info("snapshot exported", "key", key, "vars", len(s.Vars), "epoch", s.Epoch)
	return key, nil
}

// Save encodes s and writes it to store under s.Key().
func Save(ctx context.Context, store SnapshotStore, s Snapshot) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := s.Key()
	if err := store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return key, nil
}

// FileStore writes snapshots to a directory.
type FileStore struct {
	Dir string
}

// Put writes data to Dir/key, creating Dir if needed.
func (f FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.Dir, key), data, 0o644)
}
