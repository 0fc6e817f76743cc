// Package cli implements the vpo command-line interface.
//
// Commands load frame sequences into the local cache, render stills,
// serve the HTTP and WebSocket API, open the desktop player and list
// scenes and load metrics. Every command reads the same TOML config
// (see pkg/config); --config selects a file other than the XDG default.
//
// # Commands
//
//   - load: Fetch a scene's frames and report what loaded
//   - render: Render one position, or a strip of stills, to PNG or JPEG
//   - serve: Run the API server with hot config reload
//   - play: Open a scene in a desktop window
//   - scenes: List configured scenes
//   - metrics: Show recent load metrics
//   - config: Print or initialize the config file
//   - cache: Manage the frame cache
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/heyharoon/vpo/pkg/buildinfo"
	"github.com/heyharoon/vpo/pkg/cache"
	"github.com/heyharoon/vpo/pkg/config"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config location when set.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the loader,
// cache and HTTP client report through the logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		registerLogHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "vpo plays image sequences scrubbed by scroll, wheel and touch",
		Long:         `vpo loads numbered frame sequences, maps scroll, wheel and touch input onto them and renders the result in a desktop window, over WebSocket or to still images.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/vpo/vpo.toml)")

	root.AddCommand(c.loadCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.scenesCommand())
	root.AddCommand(c.metricsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig reads --config, or the default path, falling back to the
// built-in scene catalog when no file exists.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "path", c.ConfigPath, "scenes", len(cfg.Scenes))
	return cfg, nil
}

// configPath returns the file loadConfig reads.
func (c *CLI) configPath() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return config.DefaultPath()
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.Timeout = cfg.Cache.HTTPTimeout.Duration
	r.FrameTTL = cfg.Cache.FrameTTL.Duration
	return r, nil
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, cfg.CacheOptions())
}

// openMetrics opens the configured metrics store. Failures degrade to a
// store that drops records; metrics never block playback.
func (c *CLI) openMetrics(ctx context.Context, cfg *config.Config) metrics.Store {
	store, err := metrics.Open(ctx, cfg.MetricsOptions())
	if err != nil {
		c.Logger.Warn("metrics disabled", "error", err)
		return metrics.NullStore{}
	}
	return store
}

// scene looks up name in cfg, with the scene list in the error.
func scene(cfg *config.Config, name string) (config.Scene, error) {
	s, ok := cfg.Scene(name)
	if !ok {
		return config.Scene{}, sceneNotFound(cfg, name)
	}
	return s, nil
}
