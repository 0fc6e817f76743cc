package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	xdraw "golang.org/x/image/draw"

	"github.com/heyharoon/vpo/pkg/cache"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/httputil"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger: it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Timeout bounds each frame request. Zero uses httputil.DefaultTimeout.
	Timeout time.Duration

	// FrameTTL is how long fetched frame bytes stay cached. Zero uses
	// cache.TTLFrame.
	FrameTTL time.Duration

	// Source overrides where frames come from. Nil fetches by URL through
	// the cache, or reads from disk for local base URLs.
	Source loader.Source
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute loads the scene in cfg and renders one position.
func (r *Runner) Execute(ctx context.Context, cfg player.Config, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	res, err := r.Load(ctx, cfg, loader.Callbacks{})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Load = res
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.FramesLoaded = res.Stats.Loaded
	result.Stats.FramesFailed = res.Stats.Failed

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, cfg.Scene, res.Sequence, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered frame",
		"scene", cfg.Scene,
		"position", opts.Position,
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load fetches the frames of cfg.Spec using cfg's batch size, priority and
// retry settings. A load where every frame failed is not an error; the
// result's sequence is empty.
func (r *Runner) Load(ctx context.Context, cfg player.Config, cb loader.Callbacks) (*loader.Result, error) {
	if err := cfg.Spec.Validate(); err != nil {
		return nil, err
	}
	batch := cfg.BatchSize
	if batch == 0 {
		batch = loader.DefaultBatchSize
	}
	l := loader.New(r.SourceFor(cfg.Spec),
		loader.WithBatchSize(batch),
		loader.WithPriority(cfg.Priority...),
		loader.WithRetries(cfg.Retries, cfg.RetryDelay),
		loader.WithLogger(r.Logger.With("scene", cfg.Scene)),
	)
	return l.Load(ctx, cfg.Spec, cb)
}

// SourceFor returns where the frames of spec are read from.
func (r *Runner) SourceFor(spec frames.Spec) loader.Source {
	if r.Source != nil {
		return r.Source
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = httputil.DefaultTimeout
	}
	client := httputil.NewClient(r.Cache, r.Keyer, timeout)
	if r.FrameTTL > 0 {
		client.WithTTL(r.FrameTTL)
	}
	return loader.NewSource(spec.BaseURL, client)
}

// RenderWithCacheInfo renders opts.Position of seq in every requested
// format and reports whether all of them came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, scene string, seq *frames.Sequence, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if seq.Empty() {
		return nil, false, vpoerrors.New(vpoerrors.ErrCodeSceneUnavailable, "scene %q has no loaded frames", scene)
	}
	opts.Position = clampPosition(opts.Position, seq)
	fingerprint := Fingerprint(seq)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.RenderKey(scene, opts.RenderKeyOpts(format, fingerprint))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	canvas := render.NewRasterCanvas(opts.Width, opts.Height).WithScaler(xdraw.CatmullRom)
	defer canvas.Release()
	blend := render.New(opts.Interpolation).RenderFrame(opts.Position, seq, canvas)
	r.Logger.Debug("painted", "scene", scene, "lower", blend.Lower, "upper", blend.Upper, "t", blend.T)

	img := canvas.Image()
	for _, format := range opts.Formats {
		data, err := render.Encode(img, format, opts.Quality)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		key := r.Keyer.RenderKey(scene, opts.RenderKeyOpts(format, fingerprint))
		_ = r.Cache.Set(ctx, key, data, cache.TTLRender)
	}
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, scene string, seq *frames.Sequence, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, scene, seq, opts)
	return artifacts, err
}

// Strip renders n stills at evenly spaced progress values from 0 to 1
// inclusive. opts.Position is ignored.
func (r *Runner) Strip(ctx context.Context, scene string, seq *frames.Sequence, opts Options, n int) ([]Still, error) {
	if n < 1 || n > MaxStrip {
		return nil, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "strip count must be in 1..%d, got %d", MaxStrip, n)
	}
	if seq.Empty() {
		return nil, vpoerrors.New(vpoerrors.ErrCodeSceneUnavailable, "scene %q has no loaded frames", scene)
	}
	stills := make([]Still, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress := 0.0
		if n > 1 {
			progress = float64(i) / float64(n-1)
		}
		o := opts
		o.Formats = append([]string(nil), opts.Formats...)
		o.Position = PositionForProgress(seq.Spec(), progress)
		artifacts, err := r.Render(ctx, scene, seq, o)
		if err != nil {
			return nil, err
		}
		stills = append(stills, Still{Index: i, Progress: progress, Position: o.Position, Artifacts: artifacts})
	}
	return stills, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func clampPosition(pos float64, seq *frames.Sequence) float64 {
	hi := float64(seq.VirtualCount() - 1)
	switch {
	case math.IsNaN(pos) || pos < 0:
		return 0
	case pos > hi:
		return hi
	default:
		return pos
	}
}
