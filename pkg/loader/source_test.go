package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/httputil"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(encodePNG(t, 4, 3))
	if err != nil {
		t.Fatalf("Decode(png): %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v, want 4x3", b)
	}
	if _, err := Decode(encodeJPEG(t, 8, 8)); err != nil {
		t.Errorf("Decode(jpeg): %v", err)
	}
	if _, err := Decode([]byte("<html>not an image</html>")); !vpoerrors.Is(err, vpoerrors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(html) = %v, want INVALID_FORMAT", err)
	}
}

func TestHTTPSourceEndToEnd(t *testing.T) {
	frame := encodeJPEG(t, 16, 9)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scene/frame3.jpg", "/scene/frame7.jpg":
			http.NotFound(w, r)
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(frame)
		}
	}))
	defer srv.Close()

	spec := frames.Spec{BaseURL: srv.URL + "/scene/frame", First: 1, Last: 10, Skip: 1}
	src := NewSource(spec.BaseURL, httputil.NewClient(nil, nil, time.Second))
	if _, ok := src.(*HTTPSource); !ok {
		t.Fatalf("NewSource(http) = %T, want *HTTPSource", src)
	}

	res, err := New(src).Load(context.Background(), spec, Callbacks{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(res.Failed, []int{3, 7}) {
		t.Errorf("failed = %v, want [3 7]", res.Failed)
	}
	if res.Sequence.Len() != 8 {
		t.Errorf("loaded = %d, want 8", res.Sequence.Len())
	}
	if !errors.Is(res.Slots[2].Err, httputil.ErrNotFound) {
		t.Errorf("slot 3 err = %v, want ErrNotFound", res.Slots[2].Err)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"1", "2", "4"} {
		if err := os.WriteFile(filepath.Join(dir, "frame"+n+".png"), encodePNG(t, 2, 2), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	spec := frames.Spec{BaseURL: "file://" + dir + "/frame", First: 1, Last: 4, Skip: 1, Ext: ".png"}
	src := NewSource(spec.BaseURL, nil)
	if _, ok := src.(*DirSource); !ok {
		t.Fatalf("NewSource(file) = %T, want *DirSource", src)
	}

	res, err := New(src).Load(context.Background(), spec, Callbacks{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(res.Sequence.Numbers(), []int{1, 2, 4}) {
		t.Errorf("loaded = %v, want [1 2 4]", res.Sequence.Numbers())
	}
	if !vpoerrors.Is(res.Slots[2].Err, vpoerrors.ErrCodeFileNotFound) {
		t.Errorf("missing frame err = %v, want FILE_NOT_FOUND", res.Slots[2].Err)
	}

	// Relative paths resolve against Root.
	rel := NewDirSource(dir)
	if _, err := rel.Load(context.Background(), "frame1.png"); err != nil {
		t.Errorf("relative Load: %v", err)
	}
}

func TestIsLocal(t *testing.T) {
	tests := map[string]bool{
		"file:///tmp/frames/frame":       true,
		"./frames/frame":                 true,
		"https://dev.heyharoon.io/frame": false,
		"http://localhost:8080/f":        false,
	}
	for in, want := range tests {
		if got := IsLocal(in); got != want {
			t.Errorf("IsLocal(%q) = %v, want %v", in, got, want)
		}
	}
	if got := LocalPath("file:///tmp/x"); !strings.HasPrefix(got, "/tmp") {
		t.Errorf("LocalPath = %q", got)
	}
}
