package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rvar/internal/config"
	"github.com/vango-dev/rvar/internal/errors"
	"github.com/vango-dev/rvar/pkg/rvar"
)

// demoStart is the clock origin of the demo, so its output is stable.
var demoStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func demoCmd(configPath *string) *cobra.Command {
	var (
		frames    int
		tickEvery int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo scene frame by frame",
		Long: `Run the demo scene on a simulated clock and print every frame.

The scene has a counter, a binding mirroring it, a mapped variable,
a merged label and a position eased back and forth by a sequence.

Examples:
  rvar demo
  rvar demo --frames=120 --tick-every=30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames < 1 {
				return errors.New("R200").WithDetail(fmt.Sprintf("--frames must be at least 1, got %d", frames))
			}
			if tickEvery < 1 {
				return errors.New("R200").WithDetail(fmt.Sprintf("--tick-every must be at least 1, got %d", tickEvery))
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runDemo(cmd.OutOrStdout(), cfg, frames, tickEvery)
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 60, "Number of frames to run")
	cmd.Flags().IntVar(&tickEvery, "tick-every", 15, "Increment the counter every N frames")

	return cmd
}

func runDemo(w io.Writer, cfg *config.Config, frames, tickEvery int) error {
	clock := &frameClock{now: demoStart}
	rt := rvar.NewRuntime(
		rvar.WithConfig(cfg.Runtime.ToRuntime()),
		rvar.WithClock(clock),
		rvar.WithLogger(cfg.Log.NewLogger(os.Stderr)),
	)
	s := newScene(rt)
	defer s.close()

	frame := rt.FrameDurationVar().Get()
	rt.Update()
	for i := 1; i <= frames; i++ {
		if i%tickEvery == 0 {
			s.tick()
		}
		clock.advance(frame)
		stats := rt.Update()
		fmt.Fprintf(w, "frame %4d  epoch %4d  %s\n", i, stats.Epoch, s)
	}
	return nil
}
