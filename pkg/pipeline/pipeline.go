// Package pipeline provides the load → render → encode pipeline shared by
// the CLI and the HTTP server.
//
// The pipeline has two stages:
//
//  1. Load: fetch a scene's frames through the frame cache into a
//     [frames.Sequence]
//  2. Render: paint one playback position onto an off-screen canvas and
//     encode it as PNG or JPEG
//
// Encoded renders are cached by scene, position, size, format and a
// fingerprint of the loaded frame set, so a scene whose frames changed
// never serves a stale image.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, cfg, pipeline.Options{
//	    Position: 120,
//	    Formats:  []string{"png"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
//
// Run individual stages:
//
//	res, err := runner.Load(ctx, cfg, loader.Callbacks{})
//	artifacts, err := runner.Render(ctx, cfg.Scene, res.Sequence, opts)
//	stills, err := runner.Strip(ctx, cfg.Scene, res.Sequence, opts, 8)
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/heyharoon/vpo/pkg/cache"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/playback"
	"github.com/heyharoon/vpo/pkg/render"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default render width in pixels.
	DefaultWidth = 1280

	// DefaultHeight is the default render height in pixels.
	DefaultHeight = 720

	// MaxDimension bounds width and height of a single render.
	MaxDimension = 4096

	// MaxStrip bounds the number of stills Strip renders.
	MaxStrip = 64
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	render.FormatPNG:  true,
	render.FormatJPEG: true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures one render.
type Options struct {
	Position      float64              `json:"position"` // virtual frame position
	Width         int                  `json:"width,omitempty"`
	Height        int                  `json:"height,omitempty"`
	Formats       []string             `json:"formats,omitempty"`
	Quality       int                  `json:"quality,omitempty"` // JPEG only
	Interpolation render.Interpolation `json:"interpolation"`
	Refresh       bool                 `json:"refresh,omitempty"` // bypass the render cache
}

// ValidateAndSetDefaults normalizes formats and fills zero fields.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Width < 1 || o.Height < 1 || o.Width > MaxDimension || o.Height > MaxDimension {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "size %dx%d out of range (1..%d)", o.Width, o.Height, MaxDimension)
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{render.FormatPNG}
	}
	for i, f := range o.Formats {
		o.Formats[i] = render.NormalizeFormat(f)
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Quality == 0 {
		o.Quality = render.DefaultJPEGQuality
	}
	if o.Quality < 1 || o.Quality > 100 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "quality must be in 1..100, got %d", o.Quality)
	}
	return nil
}

// RenderKeyOpts returns cache key options for format.
func (o *Options) RenderKeyOpts(format, fingerprint string) cache.RenderKeyOpts {
	q := 0
	if format == render.FormatJPEG {
		q = o.Quality
	}
	return cache.RenderKeyOpts{
		Position:      o.Position,
		Width:         o.Width,
		Height:        o.Height,
		Format:        format,
		Quality:       q,
		Interpolation: o.Interpolation.String(),
		Fingerprint:   fingerprint,
	}
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, jpeg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// PositionForProgress maps a normalized progress onto the spec's virtual
// positions, exactly as scroll-pin playback does.
func PositionForProgress(spec frames.Spec, progress float64) float64 {
	c := playback.NewController(spec.VirtualCount())
	c.SetFromNormalizedProgress(progress)
	return c.Value()
}

// Fingerprint identifies a loaded frame set: the spec plus which frames
// actually loaded.
func Fingerprint(seq *frames.Sequence) string {
	data, _ := json.Marshal(struct {
		Spec    frames.Spec `json:"spec"`
		Numbers []int       `json:"numbers"`
	}{seq.Spec(), seq.Numbers()})
	return cache.Hash(data)
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Load is the loader outcome, including failed frames.
	Load *loader.Result

	// Artifacts contains encoded renders keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	FramesLoaded int
	FramesFailed int
	LoadTime     time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	RenderHit bool // whether all artifacts came from cache
}

// Still is one frame of a Strip.
type Still struct {
	Index     int
	Progress  float64
	Position  float64
	Artifacts map[string][]byte
}
