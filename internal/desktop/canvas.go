package desktop

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/heyharoon/vpo/pkg/render"
)

// maxTextures bounds the frame textures kept on the GPU.
const maxTextures = 48

// Canvas is a render.Canvas backed by an offscreen ebiten image. Frames are
// uploaded once as textures and composited on the GPU, with crossfade alpha
// applied through the color scale. Finished frames are flipped to a front
// image so the window never shows a half-drawn blend.
type Canvas struct {
	mu       sync.Mutex
	w, h     int
	target   *ebiten.Image
	front    *ebiten.Image
	textures map[image.Image]*ebiten.Image
	order    []image.Image
}

// NewCanvas creates a w×h canvas.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{textures: make(map[image.Image]*ebiten.Image)}
	c.Resize(w, h)
	return c
}

func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w, c.h
}

func (c *Canvas) Resize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, h = max(w, 1), max(h, 1)
	if c.target != nil && c.w == w && c.h == h {
		return
	}
	if c.target != nil {
		c.target.Deallocate()
		c.front.Deallocate()
	}
	c.w, c.h = w, h
	c.target = ebiten.NewImage(w, h)
	c.front = ebiten.NewImage(w, h)
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil {
		c.target.Clear()
	}
}

func (c *Canvas) DrawImage(img image.Image, dst render.Rect, alpha float64) {
	if img == nil || alpha <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return
	}
	tex := c.texture(img)
	b := img.Bounds()

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(dst.W/float64(b.Dx()), dst.H/float64(b.Dy()))
	op.GeoM.Translate(dst.X, dst.Y)
	op.ColorScale.ScaleAlpha(float32(min(alpha, 1)))
	op.Filter = ebiten.FilterLinear
	c.target.DrawImage(tex, op)
}

// texture returns the GPU copy of img, evicting the oldest when full.
func (c *Canvas) texture(img image.Image) *ebiten.Image {
	if tex, ok := c.textures[img]; ok {
		return tex
	}
	if len(c.order) >= maxTextures {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.textures[oldest].Deallocate()
		delete(c.textures, oldest)
	}
	tex := ebiten.NewImageFromImage(img)
	c.textures[img] = tex
	c.order = append(c.order, img)
	return tex
}

// Flip copies the finished offscreen frame to the front image.
func (c *Canvas) Flip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return
	}
	c.front.Clear()
	c.front.DrawImage(c.target, nil)
}

// DrawTo draws the last flipped frame onto screen.
func (c *Canvas) DrawTo(screen *ebiten.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.front != nil {
		screen.DrawImage(c.front, nil)
	}
}

// Release frees every texture. The canvas draws nothing afterwards.
func (c *Canvas) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tex := range c.textures {
		tex.Deallocate()
	}
	c.textures = make(map[image.Image]*ebiten.Image)
	c.order = nil
	if c.target != nil {
		c.target.Deallocate()
		c.front.Deallocate()
		c.target, c.front = nil, nil
	}
}

var _ render.Canvas = (*Canvas)(nil)
