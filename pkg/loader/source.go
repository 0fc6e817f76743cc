package loader

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // register JPEG frames
	_ "image/png"  // register PNG frames
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp" // register WebP frames

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/httputil"
)

// Source loads one frame image by URL.
type Source interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, url string) (image.Image, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context, url string) (image.Image, error) { return f(ctx, url) }

// Decode decodes JPEG, PNG or WebP bytes.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, vpoerrors.Wrap(vpoerrors.ErrCodeInvalidFormat, err, "decode frame")
	}
	return img, nil
}

// HTTPSource fetches frames over HTTP through an httputil.Client, which
// provides caching, status mapping and retry of transient failures.
type HTTPSource struct {
	client *httputil.Client
}

// NewHTTPSource creates an HTTPSource. A nil client uses an uncached client
// with the default timeout.
func NewHTTPSource(client *httputil.Client) *HTTPSource {
	if client == nil {
		client = httputil.NewClient(nil, nil, 0)
	}
	return &HTTPSource{client: client}
}

// Load fetches and decodes url.
func (s *HTTPSource) Load(ctx context.Context, url string) (image.Image, error) {
	data, err := s.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// DirSource reads frames from the local filesystem. URLs may be file://
// URLs or plain paths; relative paths resolve against Root.
type DirSource struct {
	Root string
}

// NewDirSource creates a DirSource rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Load reads and decodes the file named by url.
func (s *DirSource) Load(ctx context.Context, url string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := LocalPath(url)
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, vpoerrors.Wrap(vpoerrors.ErrCodeFileNotFound, err, "frame %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// IsLocal reports whether baseURL names local files rather than an HTTP
// location.
func IsLocal(baseURL string) bool {
	return strings.HasPrefix(baseURL, "file://") || !strings.Contains(baseURL, "://")
}

// LocalPath strips a file:// prefix.
func LocalPath(url string) string {
	return strings.TrimPrefix(url, "file://")
}

// NewSource returns a DirSource for local base URLs and an HTTPSource
// using client otherwise.
func NewSource(baseURL string, client *httputil.Client) Source {
	if IsLocal(baseURL) {
		return NewDirSource("")
	}
	return NewHTTPSource(client)
}
