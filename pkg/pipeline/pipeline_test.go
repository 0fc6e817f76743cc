package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/heyharoon/vpo/pkg/cache"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"png", false},
		{"jpeg", false},
		{"jpg", true}, // normalized by Options, not here
		{"svg", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !vpoerrors.Is(err, vpoerrors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %v", tt.format, vpoerrors.GetCode(err))
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", o.Width, o.Height, DefaultWidth, DefaultHeight)
	}
	if len(o.Formats) != 1 || o.Formats[0] != render.FormatPNG {
		t.Errorf("Formats = %v, want [png]", o.Formats)
	}

	o = Options{Formats: []string{"JPG", "png"}}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Formats[0] != render.FormatJPEG || o.Quality != render.DefaultJPEGQuality {
		t.Errorf("Formats = %v, Quality = %d", o.Formats, o.Quality)
	}

	bad := []Options{
		{Width: -1},
		{Width: MaxDimension + 1},
		{Formats: []string{"gif"}},
		{Quality: 101},
	}
	for _, o := range bad {
		if err := o.ValidateAndSetDefaults(); err == nil {
			t.Errorf("ValidateAndSetDefaults(%+v) should fail", o)
		}
	}
}

func TestPositionForProgress(t *testing.T) {
	spec := frames.Spec{BaseURL: "f", First: 1, Last: 16, Skip: 5}
	tests := []struct {
		progress, want float64
	}{
		{0, 0},
		{0.5, 7.5},
		{1, 15},
		{-3, 0},
		{7, 15},
	}
	for _, tt := range tests {
		if got := PositionForProgress(spec, tt.progress); got != tt.want {
			t.Errorf("PositionForProgress(%v) = %v, want %v", tt.progress, got, tt.want)
		}
	}
}

// solid returns a source that paints frame n with gray level n.
func solid() loader.Source {
	return loader.SourceFunc(func(_ context.Context, url string) (image.Image, error) {
		i := strings.LastIndex(url, "frame")
		n, _ := strconv.Atoi(strings.TrimSuffix(url[i+len("frame"):], ".jpg"))
		img := image.NewRGBA(image.Rect(0, 0, 32, 18))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(n), uint8(n), uint8(n), 255
		}
		return img, nil
	})
}

func testConfig() player.Config {
	return player.Config{
		Scene: "test",
		Spec:  frames.Spec{BaseURL: "https://frames.test/frame", First: 1, Last: 16, Skip: 5},
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	return img
}

func TestRunnerExecute(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	r.Source = solid()

	res, err := r.Execute(context.Background(), testConfig(), Options{Position: 5, Width: 64, Height: 36})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Stats.FramesLoaded != 4 || res.Stats.FramesFailed != 0 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.CacheInfo.RenderHit {
		t.Error("first render should miss the cache")
	}

	img := decodePNG(t, res.Artifacts[render.FormatPNG])
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Errorf("bounds = %v, want 64x36", b)
	}
	// Position 5 is frame 6 exactly.
	if c := color.GrayModel.Convert(img.At(10, 10)).(color.Gray); c.Y != 6 {
		t.Errorf("pixel = %d, want frame 6's gray level", c.Y)
	}
}

func TestRunnerRenderCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	r := NewRunner(mc, nil, nil)
	r.Source = solid()
	cfg := testConfig()

	res, err := r.Load(context.Background(), cfg, loader.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Position: 4.5, Width: 16, Height: 9, Formats: []string{"png", "jpg"}, Interpolation: render.Crossfade}

	first, hit, err := r.RenderWithCacheInfo(context.Background(), cfg.Scene, res.Sequence, opts)
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	if len(first) != 2 || first[render.FormatJPEG] == nil {
		t.Fatalf("artifacts = %v, want png and jpeg", len(first))
	}
	if mc.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", mc.Len())
	}

	second, hit, err := r.RenderWithCacheInfo(context.Background(), cfg.Scene, res.Sequence, opts)
	if err != nil || !hit {
		t.Fatalf("second render: hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(first[render.FormatPNG], second[render.FormatPNG]) {
		t.Error("cached render differs")
	}

	opts.Refresh = true
	if _, hit, _ := r.RenderWithCacheInfo(context.Background(), cfg.Scene, res.Sequence, opts); hit {
		t.Error("Refresh should bypass the cache")
	}

	// A different frame set must not share cache entries.
	partial := frames.NewSequence(cfg.Spec, res.Sequence.Frames()[:2])
	if Fingerprint(partial) == Fingerprint(res.Sequence) {
		t.Error("fingerprints of different frame sets should differ")
	}
	opts.Refresh = false
	if _, hit, _ := r.RenderWithCacheInfo(context.Background(), cfg.Scene, partial, opts); hit {
		t.Error("render of a different frame set should miss")
	}
}

func TestRunnerUnavailable(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Render(context.Background(), "empty", frames.NewSequence(testConfig().Spec, nil), Options{})
	if !vpoerrors.Is(err, vpoerrors.ErrCodeSceneUnavailable) {
		t.Errorf("Render(empty) code = %v, want %v", vpoerrors.GetCode(err), vpoerrors.ErrCodeSceneUnavailable)
	}
	if _, err := r.Strip(context.Background(), "empty", nil, Options{}, 3); err == nil {
		t.Error("Strip(nil) should fail")
	}
}

func TestRunnerStrip(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	r.Source = solid()
	cfg := testConfig()
	res, err := r.Load(context.Background(), cfg, loader.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}

	stills, err := r.Strip(context.Background(), cfg.Scene, res.Sequence, Options{Width: 8, Height: 8}, 3)
	if err != nil {
		t.Fatalf("Strip() error = %v", err)
	}
	want := []float64{0, 7.5, 15}
	if len(stills) != len(want) {
		t.Fatalf("len(stills) = %d, want %d", len(stills), len(want))
	}
	for i, s := range stills {
		if s.Position != want[i] || s.Index != i {
			t.Errorf("still %d position = %v, want %v", i, s.Position, want[i])
		}
		if len(s.Artifacts[render.FormatPNG]) == 0 {
			t.Errorf("still %d has no png", i)
		}
	}

	for _, n := range []int{0, MaxStrip + 1} {
		if _, err := r.Strip(context.Background(), cfg.Scene, res.Sequence, Options{}, n); err == nil {
			t.Errorf("Strip(n=%d) should fail", n)
		}
	}
}

func TestRunnerLoadCachesFrameBytes(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path == "/frame3.png" {
			http.NotFound(w, r)
			return
		}
		var buf bytes.Buffer
		_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	cfg := player.Config{
		Scene: "http",
		Spec:  frames.Spec{BaseURL: srv.URL + "/frame", First: 1, Last: 5, Skip: 1, Ext: ".png"},
	}

	res, err := r.Load(context.Background(), cfg, loader.Callbacks{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Stats.Loaded != 4 || len(res.Failed) != 1 || res.Failed[0] != 3 {
		t.Errorf("Loaded = %d, Failed = %v, want 4 and [3]", res.Stats.Loaded, res.Failed)
	}
	first := requests.Load()

	if _, err := r.Load(context.Background(), cfg, loader.Callbacks{}); err != nil {
		t.Fatal(err)
	}
	// Only the missing frame is requested again.
	if got := requests.Load() - first; got != 1 {
		t.Errorf("second load made %d requests, want 1", got)
	}
}

func TestRunnerLoadInvalid(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	cfg := testConfig()
	cfg.Spec.Skip = 0
	if _, err := r.Load(context.Background(), cfg, loader.Callbacks{}); !vpoerrors.Is(err, vpoerrors.ErrCodeInvalidSpec) {
		t.Errorf("Load(invalid) code = %v", vpoerrors.GetCode(err))
	}
}
