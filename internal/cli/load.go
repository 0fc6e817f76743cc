package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/heyharoon/vpo/pkg/config"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/pipeline"
	"github.com/heyharoon/vpo/pkg/player"
)

// loadOpts holds flags shared by commands that load a scene.
type loadOpts struct {
	noCache bool
	plain   bool
}

func (o *loadOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "fetch every frame instead of using the frame cache")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "plain progress output instead of the interactive view")
}

// loadCommand creates the load command.
func (c *CLI) loadCommand() *cobra.Command {
	var opts loadOpts

	cmd := &cobra.Command{
		Use:   "load <scene>",
		Short: "Fetch a scene's frames into the cache",
		Long: `Fetch every frame of a scene, priority frames first and then in batches,
showing progress and the per-frame results. Fetched frames are kept in the
frame cache so later renders and players start instantly.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			sc, err := scene(cfg, args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := c.loadScene(cmd.Context(), runner, sc, opts)
			if err != nil {
				return err
			}
			c.recordLoad(cmd.Context(), cfg, sc.Name, res)

			if res.Sequence.Empty() {
				return fmt.Errorf("scene %s: all %d frames failed", sc.Name, res.Stats.Requested)
			}
			fmt.Println(loadSummary(res.Stats.Loaded, res.Stats.Failed, res.Stats.Total))
			if res.Stats.Failed > 0 {
				printDetail("missing frames: %v", res.Failed)
			}
			printNextStep("Play it", fmt.Sprintf("%s play %s", appName, sc.Name))
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}

// loadScene loads sc with the interactive view on a terminal and a spinner
// otherwise.
func (c *CLI) loadScene(ctx context.Context, runner *pipeline.Runner, sc config.Scene, opts loadOpts) (*loader.Result, error) {
	pc := sc.PlayerConfig("cli")
	if !opts.plain && isTerminal(os.Stdout) {
		res, err := c.loadInteractive(ctx, runner, pc)
		if msg, ok := loadOutcome(sc.Name, res, err); ok {
			printSuccess("%s", msg)
		} else {
			printError("%s", msg)
		}
		return res, err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %s", sc.Name))
	spinner.Start()
	res, err := runner.Load(ctx, pc, loader.Callbacks{
		OnProgress: func(loaded, total int) {
			spinner.SetMessage(fmt.Sprintf("Loading %s %d/%d", sc.Name, loaded, total))
		},
	})
	if msg, ok := loadOutcome(sc.Name, res, err); ok {
		spinner.StopWithSuccess(msg)
	} else {
		spinner.StopWithError(msg)
	}
	return res, err
}

// loadOutcome is the one-line result of a load. ok is false when the load
// failed or no frame loaded.
func loadOutcome(name string, res *loader.Result, err error) (string, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("Loading %s cancelled", name), false
	case err != nil:
		return fmt.Sprintf("Loading %s failed: %s", name, vpoerrors.UserMessage(err)), false
	case res == nil || res.Sequence.Empty():
		return fmt.Sprintf("%s unavailable: no frame loaded", name), false
	default:
		return fmt.Sprintf("Loaded %s", StyleHighlight.Render(name)), true
	}
}

func (c *CLI) loadInteractive(ctx context.Context, runner *pipeline.Runner, pc player.Config) (*loader.Result, error) {
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewLoadModel(pc.Scene, pc.Spec, cancel), tea.WithContext(ctx))
	go func() {
		res, err := runner.Load(loadCtx, pc, loader.Callbacks{
			OnProgress: func(loaded, total int) { prog.Send(progressMsg{loaded, total}) },
			OnFrame:    func(slot frames.Slot) { prog.Send(frameMsg{slot}) },
		})
		prog.Send(loadDoneMsg{res: res, err: err})
	}()

	final, err := prog.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	m := final.(LoadModel)
	if m.Aborted {
		return nil, context.Canceled
	}
	return m.Result, m.Err
}

// recordLoad stores load metrics for a CLI load. Failures are logged only.
func (c *CLI) recordLoad(ctx context.Context, cfg *config.Config, scene string, res *loader.Result) {
	store := c.openMetrics(ctx, cfg)
	defer store.Close(ctx)

	m := metrics.LoadMetrics{
		Scene:           scene,
		Host:            "cli",
		InitialLoadTime: res.Stats.FirstBatch,
		TotalLoadTime:   res.Stats.Total,
		FramesLoaded:    res.Stats.Loaded,
		FramesFailed:    res.Stats.Failed,
		TotalFrames:     res.Stats.Requested,
	}
	if err := store.Record(ctx, m); err != nil {
		c.Logger.Warn("record metrics", "error", err)
	}
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// completeScenes completes scene names from the config.
func (c *CLI) completeScenes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.SceneNames(), cobra.ShellCompDirectiveNoFileComp
}
