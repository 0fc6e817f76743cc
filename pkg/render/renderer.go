package render

import (
	"context"
	"image"
	"time"

	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/observability"
)

// Canvas is a drawing target with a pixel size.
//
// DrawImage composites img into dst with source-over blending at the given
// opacity in [0, 1]. Parts of dst outside the canvas are cropped.
type Canvas interface {
	Size() (w, h int)
	Resize(w, h int)
	Clear()
	DrawImage(img image.Image, dst Rect, alpha float64)
}

// Renderer paints positions of a sequence.
type Renderer struct {
	Mode Interpolation
}

// New creates a Renderer with the given interpolation mode.
func New(mode Interpolation) *Renderer {
	return &Renderer{Mode: mode}
}

// RenderFrame clears the canvas and paints position. An empty sequence or a
// canvas without area leaves the canvas untouched and returns the zero Blend.
//
// Nearest mode, a dense sequence, or a neighbour pair one frame apart draws
// the closer frame only. Crossfade mode across a gap draws Lower at 1-T then
// Upper at T.
func (r *Renderer) RenderFrame(position float64, seq *frames.Sequence, canvas Canvas) Blend {
	if canvas == nil {
		return Blend{}
	}
	blend, ok := Resolve(position, seq)
	if !ok {
		return Blend{}
	}
	cw, ch := canvas.Size()
	if cw <= 0 || ch <= 0 {
		return blend
	}

	start := time.Now()
	canvas.Clear()

	switch {
	case blend.T <= 0 || blend.Lower == blend.Upper:
		drawCover(canvas, seq.Image(blend.Lower), cw, ch, 1)
	case blend.T >= 1:
		drawCover(canvas, seq.Image(blend.Upper), cw, ch, 1)
	case r.Mode == Nearest || seq.Dense() || blend.Upper-blend.Lower <= 1:
		drawCover(canvas, seq.Image(blend.Nearest()), cw, ch, 1)
	default:
		drawCover(canvas, seq.Image(blend.Lower), cw, ch, 1-blend.T)
		drawCover(canvas, seq.Image(blend.Upper), cw, ch, blend.T)
	}

	observability.Render().OnRender(context.Background(), blend.Lower, blend.Upper, blend.T, time.Since(start))
	return blend
}

// RenderFrame paints with a crossfade Renderer.
func RenderFrame(position float64, seq *frames.Sequence, canvas Canvas) Blend {
	return New(Crossfade).RenderFrame(position, seq, canvas)
}

func drawCover(canvas Canvas, img image.Image, cw, ch int, alpha float64) {
	if img == nil {
		return
	}
	canvas.DrawImage(img, coverFitImage(img, cw, ch), alpha)
}
