package render

import (
	"image"
	"math"
)

// Rect is a destination rectangle in canvas pixels. It may extend past the
// canvas bounds; the overflow is cropped when drawn.
type Rect struct {
	X, Y, W, H float64
}

// Bounds returns the smallest integer rectangle that contains r.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

// CoverFit returns where to draw an iw x ih image on a cw x ch canvas so the
// canvas is fully covered. When the canvas is relatively wider than the
// image, the image fills the width and is centred vertically; otherwise it
// fills the height and is centred horizontally.
//
// Degenerate sizes (any dimension <= 0) yield the zero Rect.
func CoverFit(iw, ih, cw, ch float64) Rect {
	if iw <= 0 || ih <= 0 || cw <= 0 || ch <= 0 {
		return Rect{}
	}
	imgRatio := iw / ih
	canvasRatio := cw / ch

	if canvasRatio > imgRatio {
		h := cw / imgRatio
		return Rect{X: 0, Y: (ch - h) / 2, W: cw, H: h}
	}
	w := ch * imgRatio
	return Rect{X: (cw - w) / 2, Y: 0, W: w, H: ch}
}

// coverFitImage is CoverFit for an image and a canvas size.
func coverFitImage(img image.Image, cw, ch int) Rect {
	b := img.Bounds()
	return CoverFit(float64(b.Dx()), float64(b.Dy()), float64(cw), float64(ch))
}
