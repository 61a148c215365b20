package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/api"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/app"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker API",
		Long: `Serve the tracker HTTP API.

Every store schema is created or migrated before the listener opens. The
server stops gracefully on SIGINT or SIGTERM.

Example:
  ecofmm serve
  ecofmm serve --addr 127.0.0.1:8080 --config ecofmm.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides "+config.EnvAddr+")")

	return cmd
}

// newServerApp assembles the server graph.
func newServerApp(cfg config.Config, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{
		fx.Supply(cfg),
		app.Module,
		api.Module,
		fx.WithLogger(app.FxLogger),
	}, opts...)...)
}

func runServe(cmd *cobra.Command, cfg config.Config) error {
	fxApp := newServerApp(cfg)
	if err := fxApp.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to build server", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	startCtx, cancel := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	// Wait for SIGINT/SIGTERM or, in tests, the command context.
	select {
	case <-fxApp.Wait():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), fxApp.StopTimeout())
	defer cancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}
	return nil
}
