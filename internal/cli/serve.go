package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aircraft_logger/internal/daemon"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI on localhost",
		Long: `Serve the web UI and JSON API until interrupted.

Static assets are kept in an offline cache that is refreshed in the
background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen_addr)")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command, listen string) error {
	cfg, err := loadConfig(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create daemon", err)
	}
	if err := d.Start(); err != nil {
		d.Stop()
		return WrapExitError(ExitCommandError, "failed to start daemon", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", d.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := d.Stop(); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}
