// Package config loads vpo.toml: server, cache and metrics settings plus
// the scene catalog.
//
// A config file looks like:
//
//	[server]
//	addr = ":8080"
//	request_timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[[scene]]
//	name = "scene3"
//	base_url = "https://dev.heyharoon.io/scene3/samples_frames/frame"
//	first = 1
//	last = 240
//	skip = 1
//	scrub_lag = "500ms"
//
// Zero values select defaults, and a file without [[scene]] tables serves the
// built-in catalog from [Default].
package config

import (
	"io"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/heyharoon/vpo/pkg/cache"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

// ===== Durations =====

// Duration is a time.Duration that reads and writes TOML strings like "500ms".
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration { return Duration{d} }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return vpoerrors.Wrap(vpoerrors.ErrCodeInvalidConfig, err, "invalid duration %q", b)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// ===== Tables =====

// Config is the parsed vpo.toml.
type Config struct {
	Server  Server  `toml:"server"`
	Cache   Cache   `toml:"cache"`
	Metrics Metrics `toml:"metrics"`
	Scenes  []Scene `toml:"scene"`
}

// Server configures `vpo serve`.
type Server struct {
	Addr           string   `toml:"addr"`
	ReadTimeout    Duration `toml:"read_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`
	RequestTimeout Duration `toml:"request_timeout"`
	Preload        bool     `toml:"preload"`
	FrameWidth     int      `toml:"frame_width"`  // default render size for the frame endpoint
	FrameHeight    int      `toml:"frame_height"` //
	JPEGQuality    int      `toml:"jpeg_quality"`
}

// Cache selects the frame byte cache.
type Cache struct {
	Backend       string   `toml:"backend"` // file, memory, redis or none
	Dir           string   `toml:"dir"`     // default XDG cache dir
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	FrameTTL      Duration `toml:"frame_ttl"`
	HTTPTimeout   Duration `toml:"http_timeout"`
}

// Metrics selects where load metrics are recorded.
type Metrics struct {
	Backend    string `toml:"backend"` // file, mongo or none
	Path       string `toml:"path"`    // default XDG data dir
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Scene is one named frame sequence and how it plays.
type Scene struct {
	Name    string `toml:"name"`
	Title   string `toml:"title"`
	BaseURL string `toml:"base_url"`
	First   int    `toml:"first"`
	Last    int    `toml:"last"`
	Skip    int    `toml:"skip"`
	Ext     string `toml:"ext"`

	BatchSize  int      `toml:"batch_size"`
	Priority   []int    `toml:"priority"`
	Retries    int      `toml:"retries"`
	RetryDelay Duration `toml:"retry_delay"`

	Mode             player.DrivingMode   `toml:"mode"`
	Interpolation    render.Interpolation `toml:"interpolation"`
	WheelSensitivity float64              `toml:"wheel_sensitivity"`
	TouchSensitivity float64              `toml:"touch_sensitivity"`
	ScrubLag         Duration             `toml:"scrub_lag"`
	ScrollPerFrame   float64              `toml:"scroll_per_frame"`
}

// Spec returns the scene's frame spec. A zero Skip means every frame.
func (s Scene) Spec() frames.Spec {
	skip := s.Skip
	if skip == 0 {
		skip = 1
	}
	return frames.Spec{BaseURL: s.BaseURL, First: s.First, Last: s.Last, Skip: skip, Ext: s.Ext}
}

// PlayerConfig converts the scene into a player configuration for host.
func (s Scene) PlayerConfig(host string) player.Config {
	return player.Config{
		Scene:            s.Name,
		Spec:             s.Spec(),
		BatchSize:        s.BatchSize,
		Priority:         s.Priority,
		Retries:          s.Retries,
		RetryDelay:       s.RetryDelay.Duration,
		DrivingMode:      s.Mode,
		Interpolation:    s.Interpolation,
		WheelSensitivity: s.WheelSensitivity,
		TouchSensitivity: s.TouchSensitivity,
		ScrubLag:         s.ScrubLag.Duration,
		ScrollPerFrame:   s.ScrollPerFrame,
		Host:             host,
	}
}

// DisplayTitle returns Title, falling back to Name.
func (s Scene) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// ===== Loading =====

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, vpoerrors.Wrap(vpoerrors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return finish(&c, md)
}

// Parse reads and validates a config from TOML text.
func Parse(data string) (*Config, error) {
	var c Config
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, vpoerrors.Wrap(vpoerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	return finish(&c, md)
}

func finish(c *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Scene returns the scene named name.
func (c *Config) Scene(name string) (Scene, bool) {
	for _, s := range c.Scenes {
		if s.Name == name {
			return s, true
		}
	}
	return Scene{}, false
}

// SceneNames returns scene names in file order.
func (c *Config) SceneNames() []string {
	names := make([]string, len(c.Scenes))
	for i, s := range c.Scenes {
		names[i] = s.Name
	}
	return names
}

// CacheOptions converts the [cache] table for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
	}
}

// MetricsOptions converts the [metrics] table for metrics.Open.
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		Backend:    c.Metrics.Backend,
		Path:       c.Metrics.Path,
		MongoURI:   c.Metrics.MongoURI,
		Database:   c.Metrics.Database,
		Collection: c.Metrics.Collection,
	}
}

// ===== Validation =====

// Validate checks every table. Scene names must be unique.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendMemory, cache.BackendRedis, cache.BackendNone:
	default:
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisAddr == "" {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "cache backend redis needs redis_addr")
	}
	switch c.Metrics.Backend {
	case metrics.BackendFile, metrics.BackendNone:
	case metrics.BackendMongo:
		if c.Metrics.MongoURI == "" {
			return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "metrics backend mongo needs mongo_uri")
		}
	default:
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "unknown metrics backend %q", c.Metrics.Backend)
	}
	if q := c.Server.JPEGQuality; q < 1 || q > 100 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "jpeg_quality must be in 1..100, got %d", q)
	}
	if len(c.Scenes) == 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "no scenes configured")
	}

	seen := make(map[string]bool, len(c.Scenes))
	for _, s := range c.Scenes {
		if err := vpoerrors.ValidateSceneName(s.Name); err != nil {
			return err
		}
		if seen[s.Name] {
			return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "duplicate scene %q", s.Name)
		}
		seen[s.Name] = true
		if err := s.PlayerConfig("").Validate(); err != nil {
			return vpoerrors.Wrap(vpoerrors.GetCode(err), err, "scene %q", s.Name)
		}
	}
	return nil
}
