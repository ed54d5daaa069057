package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/inspector"
)

func snapshotCmd(configPath *string) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export a snapshot of a running inspector",
		Long: `Fetch the current snapshot from a running inspector and write it
to the store configured in the snapshot section: a local directory
or an S3 bucket.

Examples:
  rvar snapshot
  rvar snapshot --addr=10.0.0.5:7070 --config=rvar.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Inspector.Addr
			}
			store, err := requireStore(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			key, err := exportRemote(ctx, http.DefaultClient, addr, store)
			if err != nil {
				return errors.New("R301").Wrap(err)
			}
			success("Snapshot written to %s", key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Inspector address (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time limit for fetching and storing")

	return cmd
}

// exportRemote fetches the snapshot served at addr and saves it to store.
func exportRemote(ctx context.Context, client *http.Client, addr string, store inspector.SnapshotStore) (string, error) {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/") + "/snapshot"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch snapshot: %s returned %s", url, resp.Status)
	}

	var s inspector.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	return inspector.Save(ctx, store, s)
}
