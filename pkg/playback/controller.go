// Package playback owns the playback position of a frame sequence.
//
// A [Controller] holds a continuous position in [0, frameCount-1]. Scroll
// hosts set it from a normalized progress; wheel and touch hosts advance it
// by raw deltas and get told when input pushes past an end, so they can
// release input capture and let the page scroll on.
//
// Controllers are not safe for concurrent use. The player serializes access.
package playback

import "math"

// Default sensitivities, in frames per pixel of input.
const (
	DefaultWheelSensitivity = 0.01
	DefaultTouchSensitivity = 0.01
)

// Boundary reports an attempt to move past an end of the sequence.
type Boundary int

const (
	BoundaryNone  Boundary = iota
	BoundaryStart          // at frame 0 and pushed backwards
	BoundaryEnd            // at the last frame and pushed forwards
)

func (b Boundary) String() string {
	switch b {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return "none"
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithWheelSensitivity sets frames advanced per unit of wheel delta.
func WithWheelSensitivity(s float64) Option {
	return func(c *Controller) {
		if s > 0 {
			c.wheel = s
		}
	}
}

// WithTouchSensitivity sets frames advanced per unit of touch delta.
func WithTouchSensitivity(s float64) Option {
	return func(c *Controller) {
		if s > 0 {
			c.touch = s
		}
	}
}

// Controller is the single writer of a playback position.
type Controller struct {
	frameCount int
	value      float64
	wheel      float64
	touch      float64
}

// NewController creates a controller over frameCount virtual frames. A
// frameCount below 1 is treated as 1, pinning the position at 0.
func NewController(frameCount int, opts ...Option) *Controller {
	c := &Controller{
		frameCount: max(frameCount, 1),
		wheel:      DefaultWheelSensitivity,
		touch:      DefaultTouchSensitivity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FrameCount returns the number of virtual frames.
func (c *Controller) FrameCount() int { return c.frameCount }

// Value returns the current position.
func (c *Controller) Value() float64 { return c.value }

// maxValue is the last valid position.
func (c *Controller) maxValue() float64 { return float64(c.frameCount - 1) }

// Progress returns the position normalized to [0, 1]. A single-frame
// sequence always reports 0.
func (c *Controller) Progress() float64 {
	if c.frameCount <= 1 {
		return 0
	}
	return c.value / c.maxValue()
}

// AtStart reports whether the position is at frame 0.
func (c *Controller) AtStart() bool { return c.value <= 0 }

// AtEnd reports whether the position is at the last frame.
func (c *Controller) AtEnd() bool { return c.value >= c.maxValue() }

// SetFromNormalizedProgress sets value = clamp(p, 0, 1) * (frameCount-1).
// NaN is treated as 0.
func (c *Controller) SetFromNormalizedProgress(p float64) {
	if math.IsNaN(p) {
		p = 0
	}
	c.value = clamp(p, 0, 1) * c.maxValue()
}

// Jump moves to an absolute position, clamped into range.
func (c *Controller) Jump(value float64) {
	if math.IsNaN(value) {
		return
	}
	c.value = clamp(value, 0, c.maxValue())
}

// Advance moves by delta times the wheel sensitivity.
func (c *Controller) Advance(delta float64) Boundary {
	return c.advance(delta, c.wheel)
}

// AdvanceTouch moves by delta times the touch sensitivity.
func (c *Controller) AdvanceTouch(delta float64) Boundary {
	return c.advance(delta, c.touch)
}

// advance leaves the value untouched and reports the boundary when it is
// already at an end and delta points further out. Otherwise it clamps.
func (c *Controller) advance(delta, sensitivity float64) Boundary {
	if math.IsNaN(delta) || delta == 0 {
		return BoundaryNone
	}
	if delta < 0 && c.AtStart() {
		return BoundaryStart
	}
	if delta > 0 && c.AtEnd() {
		return BoundaryEnd
	}
	c.value = clamp(c.value+delta*sensitivity, 0, c.maxValue())
	return BoundaryNone
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
