package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/pipeline"
	"github.com/heyharoon/vpo/pkg/render"
)

// renderOpts holds render command options.
type renderOpts struct {
	load          loadOpts
	progress      float64
	position      float64
	strip         int
	width         int
	height        int
	formats       string
	quality       int
	interpolation string
	output        string
	refresh       bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{position: -1}

	cmd := &cobra.Command{
		Use:   "render <scene>",
		Short: "Render stills of a scene to PNG or JPEG",
		Long: `Render one playback position of a scene, or a strip of evenly spaced
positions, the way the player paints them (cover fit, crossfade across
missing frames when the scene interpolates).`,
		Example: `  # Frame at half the scroll range
  vpo render scene3 --progress 0.5

  # Ten stills across the whole sequence as JPEG
  vpo render optimized --strip 10 --format jpeg -o stills/`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().Float64VarP(&opts.progress, "progress", "p", 0, "scroll progress to render, 0..1")
	cmd.Flags().Float64Var(&opts.position, "position", -1, "virtual frame position to render (overrides --progress)")
	cmd.Flags().IntVar(&opts.strip, "strip", 0, fmt.Sprintf("render N evenly spaced stills (1..%d)", pipeline.MaxStrip))
	cmd.Flags().IntVarP(&opts.width, "width", "W", pipeline.DefaultWidth, "output width")
	cmd.Flags().IntVarP(&opts.height, "height", "H", pipeline.DefaultHeight, "output height")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", render.FormatPNG, "output formats: png, jpeg (comma-separated)")
	cmd.Flags().IntVar(&opts.quality, "quality", render.DefaultJPEGQuality, "JPEG quality 1..100")
	cmd.Flags().StringVar(&opts.interpolation, "interpolation", "", "nearest or crossfade (default from scene)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached renders")
	opts.load.register(cmd)

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, name string, opts renderOpts) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sc, err := scene(cfg, name)
	if err != nil {
		return err
	}

	ro := pipeline.Options{
		Width:         opts.width,
		Height:        opts.height,
		Formats:       parseFormats(opts.formats),
		Quality:       opts.quality,
		Interpolation: sc.Interpolation,
		Refresh:       opts.refresh,
	}
	if opts.interpolation != "" {
		if ro.Interpolation, err = render.ParseInterpolation(opts.interpolation); err != nil {
			return err
		}
	}
	if err := ro.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if opts.progress < 0 || opts.progress > 1 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "progress must be in 0..1, got %v", opts.progress)
	}
	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	runner, err := c.newRunner(ctx, cfg, opts.load.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := c.loadScene(ctx, runner, sc, opts.load)
	if err != nil {
		return err
	}
	c.recordLoad(ctx, cfg, sc.Name, res)
	fmt.Println(loadSummary(res.Stats.Loaded, res.Stats.Failed, res.Stats.Total))

	prog := newProgress(c.Logger)
	if opts.strip > 0 {
		stills, err := runner.Strip(ctx, sc.Name, res.Sequence, ro, opts.strip)
		if err != nil {
			return err
		}
		printSuccess("Rendered %d stills of %s", len(stills), StyleHighlight.Render(sc.Name))
		for _, s := range stills {
			if err := writeArtifacts(opts.output, fmt.Sprintf("%s-%02d", sc.Name, s.Index), s.Artifacts); err != nil {
				return err
			}
		}
		prog.done("strip written")
		return nil
	}

	ro.Position = opts.position
	if opts.position < 0 {
		ro.Position = pipeline.PositionForProgress(sc.Spec(), opts.progress)
	}
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, sc.Name, res.Sequence, ro)
	if err != nil {
		return err
	}
	printSuccess("Rendered %s at position %.1f", StyleHighlight.Render(sc.Name), ro.Position)
	printRenderStats(ro.Width, ro.Height, ro.Formats, cached)
	if err := writeArtifacts(opts.output, fmt.Sprintf("%s-%.0f", sc.Name, ro.Position), artifacts); err != nil {
		return err
	}
	prog.done("render written")
	return nil
}

// writeArtifacts writes each format to dir/base.ext.
func writeArtifacts(dir, base string, artifacts map[string][]byte) error {
	for _, format := range sortedFormats(artifacts) {
		path := filepath.Join(dir, base+"."+fileExt(format))
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

func sortedFormats(artifacts map[string][]byte) []string {
	var out []string
	for _, f := range []string{render.FormatPNG, render.FormatJPEG} {
		if _, ok := artifacts[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func fileExt(format string) string {
	if format == render.FormatJPEG {
		return "jpg"
	}
	return format
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatPNG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
