package desktop

import (
	"testing"

	"github.com/heyharoon/vpo/pkg/player"
)

func TestWheelPixels(t *testing.T) {
	tests := []struct {
		yoff float64
		want float64
	}{
		{0, 0},
		{-1, 100},
		{1, -100},
		{-0.5, 50},
	}
	for _, tt := range tests {
		if got := wheelPixels(tt.yoff); got != tt.want {
			t.Errorf("wheelPixels(%v) = %v, want %v", tt.yoff, got, tt.want)
		}
	}
}

func TestPageScroller(t *testing.T) {
	s := newPageScroller(200)

	if p, edge := s.scroll(50); p != 0.25 || edge != nil {
		t.Errorf("scroll(50) = (%v, %v), want (0.25, nil)", p, edge)
	}
	p, edge := s.scroll(500)
	if p != 1 || edge == nil || *edge != player.EdgeEnd {
		t.Errorf("scroll(500) = (%v, %v), want (1, end)", p, edge)
	}
	if _, edge := s.scroll(10); edge != nil {
		t.Errorf("scroll past end reported edge %v again", *edge)
	}
	p, edge = s.scroll(-1000)
	if p != 0 || edge == nil || *edge != player.EdgeStart {
		t.Errorf("scroll(-1000) = (%v, %v), want (0, start)", p, edge)
	}

	s.jump(player.EdgeEnd)
	if p, _ := s.scroll(0); p != 1 {
		t.Errorf("progress after jump(end) = %v, want 1", p)
	}
	s.jump(player.EdgeStart)
	if p, _ := s.scroll(0); p != 0 {
		t.Errorf("progress after jump(start) = %v, want 0", p)
	}

	if got := newPageScroller(0).span; got != 1 {
		t.Errorf("zero span = %v, want 1", got)
	}
}

func TestTouchTracker(t *testing.T) {
	var tr touchTracker

	if d := tr.move(1, 300); d != 0 {
		t.Errorf("first move = %v, want 0", d)
	}
	if d := tr.move(1, 260); d != 40 {
		t.Errorf("drag up = %v, want 40", d)
	}
	if d := tr.move(1, 280); d != -20 {
		t.Errorf("drag down = %v, want -20", d)
	}
	if d := tr.move(2, 100); d != 0 {
		t.Errorf("new finger = %v, want 0", d)
	}
	tr.release(2)
	if d := tr.move(2, 50); d != 0 {
		t.Errorf("move after release = %v, want 0", d)
	}
}

func TestDrives(t *testing.T) {
	tests := []struct {
		mode player.DrivingMode
		kind inputKind
		want bool
	}{
		{player.ScrollPin, inputWheel, true},
		{player.ScrollPin, inputTouch, true},
		{player.WheelCapture, inputWheel, true},
		{player.WheelCapture, inputTouch, true},
		{player.TouchCapture, inputWheel, false},
		{player.TouchCapture, inputTouch, true},
	}
	for _, tt := range tests {
		if got := drives(tt.mode, tt.kind); got != tt.want {
			t.Errorf("drives(%v, %d) = %v, want %v", tt.mode, tt.kind, got, tt.want)
		}
	}
}
