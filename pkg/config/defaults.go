package config

import (
	"path/filepath"
	"time"

	"github.com/heyharoon/vpo/pkg/cache"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/render"
)

// Server defaults.
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 15 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultFrameWidth     = 1280
	DefaultFrameHeight    = 720
	DefaultHTTPTimeout    = 10 * time.Second
)

const frameHost = "https://dev.heyharoon.io"

// Default returns the built-in configuration: file cache and metrics under
// the XDG directories and the catalog of scenes served by the site.
func Default() *Config {
	c := &Config{
		Scenes: []Scene{
			{
				Name:     "frames1",
				Title:    "Mall entrance",
				BaseURL:  frameHost + "/frames1/samples_frames/frame",
				First:    1,
				Last:     226,
				ScrubLag: D(500 * time.Millisecond),
			},
			{
				Name:     "scene2",
				Title:    "Atrium",
				BaseURL:  frameHost + "/scene2/samples_frames/frame",
				First:    1,
				Last:     400,
				ScrubLag: D(500 * time.Millisecond),
			},
			{
				Name:           "experience",
				Title:          "Gallery experience",
				BaseURL:        frameHost + "/scene2/samples_frames/frame",
				First:          1,
				Last:           250,
				ScrubLag:       D(500 * time.Millisecond),
				ScrollPerFrame: 8,
			},
			{
				Name:           "scene3",
				Title:          "Storefronts",
				BaseURL:        frameHost + "/scene3/samples_frames/frame",
				First:          1,
				Last:           240,
				ScrubLag:       D(500 * time.Millisecond),
				ScrollPerFrame: 10,
			},
			{
				Name:          "optimized",
				Title:         "Entrance (fast start)",
				BaseURL:       frameHost + "/frames1/samples_frames/frame",
				First:         1,
				Last:          250,
				Skip:          5,
				BatchSize:     5,
				Priority:      []int{1, 6, 11, 16, 21, 26, 31, 36},
				Interpolation: render.Crossfade,
				ScrubLag:      D(500 * time.Millisecond),
			},
		},
	}
	c.applyDefaults()
	return c
}

// applyDefaults fills zero values. Scenes are left alone unless there are
// none, in which case the built-in catalog is used.
func (c *Config) applyDefaults() {
	s := &c.Server
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadTimeout.Duration == 0 {
		s.ReadTimeout = D(DefaultReadTimeout)
	}
	if s.WriteTimeout.Duration == 0 {
		s.WriteTimeout = D(DefaultWriteTimeout)
	}
	if s.RequestTimeout.Duration == 0 {
		s.RequestTimeout = D(DefaultRequestTimeout)
	}
	if s.FrameWidth == 0 {
		s.FrameWidth = DefaultFrameWidth
	}
	if s.FrameHeight == 0 {
		s.FrameHeight = DefaultFrameHeight
	}
	if s.JPEGQuality == 0 {
		s.JPEGQuality = render.DefaultJPEGQuality
	}

	cc := &c.Cache
	if cc.Backend == "" {
		cc.Backend = cache.BackendFile
	}
	if cc.Dir == "" {
		if dir, err := CacheDir(); err == nil {
			cc.Dir = dir
		}
	}
	if cc.FrameTTL.Duration == 0 {
		cc.FrameTTL = D(cache.TTLFrame)
	}
	if cc.HTTPTimeout.Duration == 0 {
		cc.HTTPTimeout = D(DefaultHTTPTimeout)
	}

	m := &c.Metrics
	if m.Backend == "" {
		m.Backend = metrics.BackendFile
	}
	if m.Path == "" {
		if dir, err := DataDir(); err == nil {
			m.Path = filepath.Join(dir, "metrics.jsonl")
		}
	}
	if m.Database == "" {
		m.Database = metrics.DefaultDatabase
	}
	if m.Collection == "" {
		m.Collection = metrics.DefaultCollection
	}

	if len(c.Scenes) == 0 {
		c.Scenes = Default().Scenes
	}
	for i := range c.Scenes {
		if c.Scenes[i].Skip == 0 {
			c.Scenes[i].Skip = 1
		}
	}
}
