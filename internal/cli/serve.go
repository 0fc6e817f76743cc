package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/heyharoon/vpo/pkg/config"
	"github.com/heyharoon/vpo/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noPreload bool
		noWatch   bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scenes over HTTP and WebSocket",
		Long: `Serve the scene API: scene status, rendered frames and a WebSocket viewport
per connection. Scenes are preloaded at startup unless --no-preload is set,
and edits to the config file are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if noPreload {
				cfg.Server.Preload = false
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()
			store := c.openMetrics(ctx, cfg)
			defer store.Close(context.Background())

			srv := server.New(cfg, runner, store, c.Logger)
			if cfg.Server.Preload {
				srv.Registry().Preload()
			}

			if !noWatch {
				c.watchConfig(ctx, srv, noPreload)
			}

			printInfo("Serving %d scenes on %s", len(cfg.Scenes), StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&noPreload, "no-preload", false, "load scenes on first request instead of at startup")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config file on change")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the frame cache")

	return cmd
}

// watchConfig reloads srv whenever the config file changes. Nothing is
// watched when the built-in catalog is in use.
func (c *CLI) watchConfig(ctx context.Context, srv *server.Server, noPreload bool) {
	path, err := c.configPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.Logger.Debug("config watch disabled", "path", path, "error", err)
		return
	}
	go func() {
		err := config.Watch(ctx, path, func(cfg *config.Config) {
			if noPreload {
				cfg.Server.Preload = false
			}
			srv.Reload(cfg)
		}, c.Logger)
		if err != nil && ctx.Err() == nil {
			c.Logger.Warn("config watch stopped", "error", err)
		}
	}()
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
