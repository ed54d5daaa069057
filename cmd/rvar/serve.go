package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/rvar/internal/config"
	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/inspector"
	"github.com/vango-dev/rvar/pkg/rvar"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo scene behind the inspector",
		Long: `Run the demo scene in real time and serve it through the inspector.

The inspector lists the scene variables, streams their changes over
a websocket and exposes the runtime metrics for Prometheus.

Examples:
  rvar serve
  rvar serve --addr=0.0.0.0:7070
  rvar serve --config=rvar.yaml --interval=500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("R200").WithDetail("--interval must be positive")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspector.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often the counter increments")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	logger := cfg.Log.NewLogger(os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt := rvar.NewRuntime(
		rvar.WithConfig(cfg.Runtime.ToRuntime()),
		rvar.WithLogger(logger),
		rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))),
	)

	opts := []inspector.Option{
		inspector.WithGatherer(reg),
		inspector.WithHistory(cfg.Inspector.History),
	}
	if store := newStore(cfg.Snapshot); store != nil {
		opts = append(opts, inspector.WithStore(store))
	}
	in := inspector.New(rt, opts...)
	defer in.Close()

	s := newScene(rt)
	defer s.close()
	s.watch(in)

	server := &http.Server{
		Addr:              cfg.Inspector.Addr,
		Handler:           in.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("inspector server failed", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := rt.Dispatch(s.tick); err != nil {
					logger.Warn("tick dropped", "error", err)
				}
			}
		}
	}()

	printBanner()
	success("Inspector listening on http://%s", cfg.Inspector.Addr)
	info("GET /vars, /stats, /metrics and /ws for the change stream")
	if cfg.Snapshot.Dir == "" && cfg.Snapshot.Bucket == "" {
		warn("No snapshot store configured, POST /snapshot is disabled")
	}

	_ = rt.Run(runCtx)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("inspector shutdown", "error", err)
	}

	select {
	case err := <-serveErr:
		return errors.New("R400").Wrap(err)
	default:
	}
	info("Stopped")
	return nil
}
