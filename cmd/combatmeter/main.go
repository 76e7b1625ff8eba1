// Command combatmeter decodes game traffic into live combat statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// module defs - set at build time via ldflags
var (
	CurrentVersion = "0.1.0"
	BuildDate      = "unknown"

	AppName = "combatmeter"
)

type rootFlags struct {
	configDir string
	logLevel  string
	logsDir   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   AppName,
		Short: "Decode game traffic into combat statistics",
		Long: `combatmeter decodes the game's framed notify protocol, classifies every
damage and healing event and aggregates per-player statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config", ".", "directory containing combatmeter.cfg.json")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&flags.logsDir, "logs-dir", "", "override the configured logs directory")

	root.AddCommand(
		replayCmd(flags),
		decodeCmd(flags),
		serveCmd(flags),
		usersCmd(),
		versionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
