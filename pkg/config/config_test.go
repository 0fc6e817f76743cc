package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return dir
}

func TestDefault(t *testing.T) {
	dir := isolate(t)
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}

	want := map[string]int{"frames1": 226, "scene2": 400, "experience": 250, "scene3": 240, "optimized": 50}
	if len(c.Scenes) != len(want) {
		t.Fatalf("len(Scenes) = %d, want %d", len(c.Scenes), len(want))
	}
	for name, count := range want {
		s, ok := c.Scene(name)
		if !ok {
			t.Errorf("scene %q missing", name)
			continue
		}
		if got := s.Spec().Count(); got != count {
			t.Errorf("%s Count() = %d, want %d", name, got, count)
		}
	}

	opt, _ := c.Scene("optimized")
	if opt.Spec().VirtualCount() != 250 || opt.Interpolation != render.Crossfade || opt.BatchSize != 5 {
		t.Errorf("optimized = %+v", opt)
	}
	if c.Cache.Dir != filepath.Join(dir, "cache", AppName) {
		t.Errorf("Cache.Dir = %q", c.Cache.Dir)
	}
	if c.Metrics.Path != filepath.Join(dir, "data", AppName, "metrics.jsonl") {
		t.Errorf("Metrics.Path = %q", c.Metrics.Path)
	}
	if c.Server.Addr != DefaultAddr || c.Server.JPEGQuality != render.DefaultJPEGQuality {
		t.Errorf("Server = %+v", c.Server)
	}
}

const sample = `
[server]
addr = ":9000"
request_timeout = "5s"

[cache]
backend = "none"

[metrics]
backend = "none"

[[scene]]
name = "lobby"
base_url = "https://frames.test/lobby/frame"
first = 1
last = 120
skip = 2
ext = ".webp"
priority = [1, 61]
retries = 3
retry_delay = "250ms"
mode = "wheel-capture"
interpolation = "crossfade"
wheel_sensitivity = 0.02
scrub_lag = "1s"
`

func TestParse(t *testing.T) {
	isolate(t)
	c, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Server.Addr != ":9000" || c.Server.RequestTimeout.Duration != 5*time.Second {
		t.Errorf("Server = %+v", c.Server)
	}
	if c.Server.ReadTimeout.Duration != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want default %v", c.Server.ReadTimeout, DefaultReadTimeout)
	}
	if len(c.Scenes) != 1 {
		t.Fatalf("len(Scenes) = %d, want 1 (file scenes replace the defaults)", len(c.Scenes))
	}

	pc := c.Scenes[0].PlayerConfig("server")
	if pc.Scene != "lobby" || pc.Host != "server" {
		t.Errorf("PlayerConfig = %+v", pc)
	}
	if pc.Spec.Count() != 60 || pc.Spec.URL(3) != "https://frames.test/lobby/frame3.webp" {
		t.Errorf("Spec = %+v", pc.Spec)
	}
	if pc.DrivingMode != player.WheelCapture || pc.Interpolation != render.Crossfade {
		t.Errorf("mode = %v, interpolation = %v", pc.DrivingMode, pc.Interpolation)
	}
	if pc.Retries != 3 || pc.RetryDelay != 250*time.Millisecond || pc.ScrubLag != time.Second {
		t.Errorf("retries = %d, delay = %v, lag = %v", pc.Retries, pc.RetryDelay, pc.ScrubLag)
	}
	if pc.WheelSensitivity != 0.02 || len(pc.Priority) != 2 {
		t.Errorf("sensitivity = %v, priority = %v", pc.WheelSensitivity, pc.Priority)
	}
}

func TestParseNoScenesUsesCatalog(t *testing.T) {
	isolate(t)
	c, err := Parse("[server]\naddr = \":1234\"\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Scenes) != len(Default().Scenes) {
		t.Errorf("len(Scenes) = %d, want built-in catalog", len(c.Scenes))
	}
}

func TestParseErrors(t *testing.T) {
	isolate(t)
	scene := "\n[[scene]]\nname = \"a\"\nbase_url = \"https://x/f\"\nfirst = 1\nlast = 10\n"
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", "[server"},
		{"unknown key", "[server]\nport = 80\n"},
		{"bad duration", "[server]\nread_timeout = \"soon\"\n"},
		{"bad mode", scene + "mode = \"gyro\"\n"},
		{"bad interpolation", scene + "interpolation = \"morph\"\n"},
		{"duplicate", scene + scene},
		{"bad name", "[[scene]]\nname = \"Bad Name\"\nbase_url = \"https://x/f\"\nfirst = 1\nlast = 2\n"},
		{"first after last", "[[scene]]\nname = \"a\"\nbase_url = \"https://x/f\"\nfirst = 5\nlast = 2\n"},
		{"bad scheme", "[[scene]]\nname = \"a\"\nbase_url = \"ftp://x/f\"\nfirst = 1\nlast = 2\n"},
		{"cache backend", "[cache]\nbackend = \"memcached\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"mongo without uri", "[metrics]\nbackend = \"mongo\"\n"},
		{"jpeg quality", "[server]\njpeg_quality = 101\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.toml); err == nil {
				t.Errorf("Parse(%q) should fail", tt.toml)
			}
		})
	}
}

func TestValidateCodes(t *testing.T) {
	isolate(t)
	c := Default()
	c.Cache.Backend = "tape"
	if err := c.Validate(); !vpoerrors.Is(err, vpoerrors.ErrCodeInvalidConfig) {
		t.Errorf("Validate() code = %v, want %v", vpoerrors.GetCode(err), vpoerrors.ErrCodeInvalidConfig)
	}

	c = Default()
	c.Cache.Backend = "memory"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate(memory backend) = %v", err)
	}
	if got := c.CacheOptions().Backend; got != "memory" {
		t.Errorf("CacheOptions().Backend = %q, want memory", got)
	}

	c = Default()
	c.Scenes[0].Skip = -1
	if err := c.Validate(); !vpoerrors.Is(err, vpoerrors.ErrCodeInvalidSpec) {
		t.Errorf("Validate() code = %v, want %v", vpoerrors.GetCode(err), vpoerrors.ErrCodeInvalidSpec)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	c, err := Parse(buf.String())
	if err != nil {
		t.Fatalf("Parse(Encode(Default())) error = %v\n%s", err, buf.String())
	}
	opt, ok := c.Scene("optimized")
	if !ok || opt.ScrubLag.Duration != 500*time.Millisecond || opt.Interpolation != render.Crossfade {
		t.Errorf("optimized after round trip = %+v", opt)
	}
}

func TestPaths(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"cache", CacheDir, filepath.Join(dir, "cache", AppName)},
		{"data", DataDir, filepath.Join(dir, "data", AppName)},
		{"config", ConfigDir, filepath.Join(dir, "config", AppName)},
		{"file", DefaultPath, filepath.Join(dir, "config", AppName, FileName)},
	}
	for _, tt := range tests {
		got, err := tt.fn()
		if err != nil || got != tt.want {
			t.Errorf("%s = (%q, %v), want %q", tt.name, got, err, tt.want)
		}
	}

	t.Setenv("XDG_CACHE_HOME", "")
	got, err := CacheDir()
	home, _ := os.UserHomeDir()
	if err != nil || got != filepath.Join(home, ".cache", AppName) {
		t.Errorf("CacheDir() without XDG = %q, want under %q", got, home)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := isolate(t)
	c, err := LoadOrDefault("")
	if err != nil || len(c.Scenes) != len(Default().Scenes) {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", c, err)
	}

	path := filepath.Join(dir, "vpo.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadOrDefault(path)
	if err != nil || len(c.Scenes) != 1 {
		t.Fatalf("LoadOrDefault(path) = %v, %v", c, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load(missing) should fail")
	}
}

// replaceFile saves data the way editors do: write a sibling, then rename
// it over path, so the watcher never sees a half-written file.
func replaceFile(t *testing.T, path, data string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestWatch(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "vpo.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 16)
	w := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.ready:
	case err := <-done:
		t.Fatalf("Run() = %v before watching", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher not ready within 5s")
	}

	// A broken edit is skipped and the previous config stays in effect.
	replaceFile(t, path, "[[scene")
	select {
	case c := <-changes:
		t.Fatalf("broken edit reloaded scenes %v", c.SceneNames())
	case <-time.After(200 * time.Millisecond):
	}

	edited := "[[scene]]\nname = \"edited\"\nbase_url = \"https://x/f\"\nfirst = 1\nlast = 3\n"
	replaceFile(t, path, edited)
	select {
	case c := <-changes:
		if _, ok := c.Scene("edited"); !ok {
			t.Errorf("reloaded scenes = %v, want [edited]", c.SceneNames())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not return after cancel")
	}
}
