package desktop

import "github.com/heyharoon/vpo/pkg/player"

// WheelLine is the pixel distance of one wheel notch. Ebiten reports wheel
// movement in notches with positive values meaning "up"; the player expects
// browser-style pixel deltas where positive means forward.
const WheelLine = 100.0

// wheelPixels converts an ebiten wheel offset to a forward pixel delta.
func wheelPixels(yoff float64) float64 {
	return -yoff * WheelLine
}

// inputKind is the physical source of a scroll delta.
type inputKind int

const (
	inputWheel inputKind = iota // mouse wheel and arrow keys
	inputTouch
)

// drives reports whether input of kind moves a player in mode. Touch-capture
// players ignore the wheel so the page keeps it.
func drives(mode player.DrivingMode, kind inputKind) bool {
	return mode != player.TouchCapture || kind == inputTouch
}

// pageScroller emulates a page that pins the player for scroll-pin mode.
// The offset runs over [0, span]; crossing either end reports the edge so
// the player can snap to the first or last frame.
type pageScroller struct {
	span   float64
	offset float64
}

func newPageScroller(span float64) *pageScroller {
	return &pageScroller{span: max(span, 1)}
}

// scroll moves the offset by dy pixels and returns the new progress. edge
// is set when the offset reached a boundary during this call.
func (s *pageScroller) scroll(dy float64) (progress float64, edge *player.Edge) {
	before := s.offset
	s.offset = min(max(s.offset+dy, 0), s.span)
	switch {
	case s.offset == 0 && before != 0:
		e := player.EdgeStart
		edge = &e
	case s.offset == s.span && before != s.span:
		e := player.EdgeEnd
		edge = &e
	}
	return s.offset / s.span, edge
}

// jump moves straight to an edge.
func (s *pageScroller) jump(edge player.Edge) {
	if edge == player.EdgeEnd {
		s.offset = s.span
	} else {
		s.offset = 0
	}
}

// touchTracker turns touch positions into drag deltas, one finger at a time.
type touchTracker struct {
	active bool
	id     int
	lastY  int
}

// move records the current position of the tracked touch and returns the
// forward delta since the last call: dragging upward advances.
func (t *touchTracker) move(id, y int) float64 {
	if !t.active || t.id != id {
		t.active, t.id, t.lastY = true, id, y
		return 0
	}
	dy := float64(t.lastY - y)
	t.lastY = y
	return dy
}

// release forgets the tracked touch if it ended.
func (t *touchTracker) release(id int) {
	if t.active && t.id == id {
		t.active = false
	}
}
