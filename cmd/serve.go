package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thiagokokada/altcos-graph/internal/buildinfo"
	"github.com/thiagokokada/altcos-graph/internal/config"
	"github.com/thiagokokada/altcos-graph/internal/server"
	"github.com/thiagokokada/altcos-graph/internal/watch"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the update graph over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			gin.SetMode(ginMode(cfg))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("starting altcos-graph",
				slog.String("version", buildinfo.String()),
				slog.String("backend", cfg.Backend),
				slog.String("graph_mode", cfg.GraphMode),
			)
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.New(cfg).Run(ctx)
			})
			if cfg.Watch {
				w := watch.New(cfg.StreamsRoot, cfg.StoreMode(), cfg.StoreBackend())
				g.Go(func() error {
					return w.Run(ctx)
				})
			}
			return g.Wait()
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8080", "address to listen on")
	flags.Bool("watch", false, "watch commit stores and log stream head changes")
	flags.Duration("shutdown-timeout", 10*time.Second, "how long to wait for in-flight requests on shutdown")
	a.bind(flags.Lookup("listen"), config.KeyListen)
	a.bind(flags.Lookup("watch"), config.KeyWatch)
	a.bind(flags.Lookup("shutdown-timeout"), config.KeyShutdownTimeout)
	return cmd
}

// ginMode keeps gin's route dump and debug warnings out of production logs.
func ginMode(cfg *config.Config) string {
	if cfg.LogLevel == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
