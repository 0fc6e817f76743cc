package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/heyharoon/vpo/internal/desktop"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/player"
)

// playCommand creates the play command.
func (c *CLI) playCommand() *cobra.Command {
	var (
		mode    string
		width   int
		height  int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "play <scene>",
		Short: "Play a scene in a desktop window",
		Long: `Open a scene in a window. The wheel, arrow keys and touch drags scrub
through the sequence; Home and End jump to the first and last frame and
Escape closes the window.

In scroll-pin mode the window stands in for a page with a pinned section:
scrolling past either end snaps to the first or last frame.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			sc, err := scene(cfg, args[0])
			if err != nil {
				return err
			}

			pc := sc.PlayerConfig("desktop")
			if mode != "" {
				if pc.DrivingMode, err = player.ParseDrivingMode(mode); err != nil {
					return err
				}
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()
			store := c.openMetrics(ctx, cfg)
			defer store.Close(context.Background())

			p := player.New(pc, runner.SourceFor(pc.Spec), c.Logger,
				player.WithMetrics(func(m metrics.LoadMetrics) {
					rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := store.Record(rctx, m); err != nil {
						c.Logger.Warn("record metrics", "error", err)
					}
				}),
			)

			win := desktop.New(p, desktop.Options{
				Title:  sc.DisplayTitle(),
				Width:  width,
				Height: height,
			}, c.Logger)
			return win.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "driving mode: scroll-pin, wheel-capture or touch-capture (default from scene)")
	cmd.Flags().IntVarP(&width, "width", "W", desktop.DefaultWidth, "window width")
	cmd.Flags().IntVarP(&height, "height", "H", desktop.DefaultHeight, "window height")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "fetch every frame instead of using the frame cache")

	return cmd
}
