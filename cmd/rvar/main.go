package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rvar/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┬  ┬┌─┐┬─┐
  ├┬┘└┐┌┘├─┤├┬┘
  ┴└─ └┘ ┴ ┴┴└─
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "rvar",
		Short: "Reactive variables, bindings and animations",
		Long: `rvar drives a reactive variable runtime.

Variables change in discrete updates, bindings propagate changes
within the same update and animations ease values frame by frame.
The CLI runs a demo scene, serves it through the inspector and
exports snapshots of a running inspector.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to "+configFileHint)

	root.AddCommand(
		demoCmd(&configPath),
		serveCmd(&configPath),
		snapshotCmd(&configPath),
		versionCmd(),
	)
	return root
}

// printBanner prints the rvar ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
