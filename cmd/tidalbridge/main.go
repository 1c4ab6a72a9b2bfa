package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/tidalbridge/internal/app"
)

const notifyTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tidalbridge: %v\n", err)
		return 1
	}
	return 0
}

func rootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "tidalbridge",
		Short:         "Now-playing bridge for the Tidal remote-control API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path (default ~/.config/tidalbridge/config.toml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the now-playing panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	for _, c := range []*cobra.Command{root, runCmd} {
		c.Flags().IntVar(&opts.PollEvery, "poll", 0, "poll interval in seconds (default from config)")
		c.Flags().BoolVar(&opts.NoListen, "no-listen", false, "disable the liveness listener fallback")
		c.Flags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file path (default ~/.config/tidalbridge/prefs.toml)")
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print what is playing and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Status(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	var addr string
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a liveness signal to a waiting bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), notifyTimeout)
			defer cancel()
			return app.Notify(ctx, opts, addr)
		},
	}
	notifyCmd.Flags().StringVar(&addr, "addr", "", "listener host:port (default from config)")

	root.AddCommand(runCmd, statusCmd, notifyCmd)
	return root
}
