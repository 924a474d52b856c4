package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/jibewatch/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jibewatch: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	prefsPath  string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "jibewatch [run-id|latest]",
		Short:         "Follow jibe runs and decode their mandate logs",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), flags, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/jibewatch/config.toml)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "prefs file (default ~/.config/jibewatch/prefs.toml)")

	root.AddCommand(newWatchCmd(&flags))
	root.AddCommand(newRunsCmd(&flags))
	root.AddCommand(newDecodeCmd(&flags))
	root.AddCommand(newServeCmd(&flags))
	return root
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [run-id|latest]",
		Short: "Open the dashboard for a run (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), *flags, args)
		},
	}
}

func watch(ctx context.Context, flags globalFlags, args []string) error {
	return app.Run(ctx, app.Options{
		ConfigPath: flags.configPath,
		PrefsPath:  flags.prefsPath,
		RunID:      runArg(args),
	})
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve [run-id|latest]",
		Short: "Follow a run headless and publish decoded blocks over HTTP and WebSocket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Serve(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				PrefsPath:  flags.prefsPath,
				RunID:      runArg(args),
				ListenAddr: listen,
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func runArg(args []string) string {
	if len(args) == 0 {
		return app.LatestRun
	}
	return args[0]
}
