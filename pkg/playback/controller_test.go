package playback

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestSetFromNormalizedProgress(t *testing.T) {
	c := NewController(250)
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 0},
		{1, 249},
		{0.5, 124.5},
		{-0.3, 0},
		{1.7, 249},
		{math.Inf(1), 249},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		c.SetFromNormalizedProgress(tt.p)
		if c.Value() != tt.want {
			t.Errorf("SetFromNormalizedProgress(%v) value = %v, want %v", tt.p, c.Value(), tt.want)
		}
	}
}

func TestClampingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		n := 1 + rng.Intn(500)
		c := NewController(n)
		c.SetFromNormalizedProgress(rng.NormFloat64() * 3)
		if v := c.Value(); v < 0 || v > float64(n-1) {
			t.Fatalf("n=%d: value %v out of range after SetFromNormalizedProgress", n, v)
		}
		for j := 0; j < 20; j++ {
			c.Advance(rng.NormFloat64() * 1e5)
			c.AdvanceTouch(rng.NormFloat64() * 1e5)
			if v := c.Value(); v < 0 || v > float64(n-1) {
				t.Fatalf("n=%d: value %v out of range after Advance", n, v)
			}
		}
	}
}

func TestAdvanceSensitivity(t *testing.T) {
	c := NewController(100)
	if b := c.Advance(100); b != BoundaryNone {
		t.Errorf("Advance(100) = %v, want none", b)
	}
	if c.Value() != 1 {
		t.Errorf("value = %v, want 1 (100px * 0.01)", c.Value())
	}

	c = NewController(100, WithWheelSensitivity(0.1), WithTouchSensitivity(0.5))
	c.Advance(10)
	c.AdvanceTouch(4)
	if c.Value() != 3 {
		t.Errorf("value = %v, want 3", c.Value())
	}

	// Non-positive sensitivities keep the defaults.
	c = NewController(100, WithWheelSensitivity(0), WithTouchSensitivity(-1))
	c.Advance(100)
	c.AdvanceTouch(100)
	if c.Value() != 2 {
		t.Errorf("value = %v, want 2", c.Value())
	}
}

func TestAdvanceBoundary(t *testing.T) {
	c := NewController(10)

	if b := c.Advance(-50); b != BoundaryStart {
		t.Errorf("Advance(-50) at start = %v, want start", b)
	}
	if c.Value() != 0 {
		t.Errorf("value = %v, want 0", c.Value())
	}

	// A large forward push clamps without reporting, then reports once at the end.
	if b := c.Advance(1e6); b != BoundaryNone {
		t.Errorf("Advance(1e6) = %v, want none", b)
	}
	if !c.AtEnd() || c.Value() != 9 {
		t.Errorf("value = %v, want 9", c.Value())
	}
	if b := c.Advance(1); b != BoundaryEnd {
		t.Errorf("Advance(1) at end = %v, want end", b)
	}
	if b := c.AdvanceTouch(1); b != BoundaryEnd {
		t.Errorf("AdvanceTouch(1) at end = %v, want end", b)
	}

	// Moving back off the end is allowed.
	if b := c.Advance(-100); b != BoundaryNone {
		t.Errorf("Advance(-100) at end = %v, want none", b)
	}
	if c.Value() != 8 {
		t.Errorf("value = %v, want 8", c.Value())
	}

	if b := c.Advance(0); b != BoundaryNone {
		t.Errorf("Advance(0) = %v, want none", b)
	}
}

func TestJumpAndProgress(t *testing.T) {
	c := NewController(11)
	c.Jump(5)
	if c.Progress() != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", c.Progress())
	}
	c.Jump(-4)
	if !c.AtStart() {
		t.Error("Jump(-4) should clamp to start")
	}
	c.Jump(400)
	if c.Value() != 10 {
		t.Errorf("Jump(400) value = %v, want 10", c.Value())
	}
	c.Jump(math.NaN())
	if c.Value() != 10 {
		t.Error("Jump(NaN) should be ignored")
	}

	single := NewController(0)
	if single.FrameCount() != 1 || single.Progress() != 0 {
		t.Errorf("NewController(0) = count %d progress %v, want 1 and 0", single.FrameCount(), single.Progress())
	}
}

func TestScrubberEases(t *testing.T) {
	c := NewController(101)
	s := NewScrubber(c, 500*time.Millisecond)
	s.SetTarget(1)

	if c.Value() != 0 {
		t.Fatalf("SetTarget should not move the controller with lag, value = %v", c.Value())
	}

	prev := c.Value()
	for i := 0; i < 10; i++ {
		if !s.Step(16 * time.Millisecond) {
			t.Fatalf("step %d made no progress", i)
		}
		if c.Value() <= prev {
			t.Fatalf("step %d: value %v did not increase from %v", i, c.Value(), prev)
		}
		prev = c.Value()
	}
	if c.Value() >= 100 {
		t.Errorf("scrubber reached target too fast: %v", c.Value())
	}

	// After one lag roughly 95% of the gap is closed.
	c.Jump(0)
	s.Step(500 * time.Millisecond)
	if p := c.Progress(); p < 0.94 || p > 0.96 {
		t.Errorf("progress after one lag = %v, want ~0.95", p)
	}

	for i := 0; i < 200 && !s.Settled(); i++ {
		s.Step(50 * time.Millisecond)
	}
	if c.Value() != 100 {
		t.Errorf("scrubber should settle exactly on target, value = %v", c.Value())
	}
	if s.Step(time.Second) {
		t.Error("Step at target should report no change")
	}
}

func TestScrubberNoLagAndStop(t *testing.T) {
	c := NewController(11)
	s := NewScrubber(c, 0)
	s.SetTarget(0.3)
	if c.Value() != 3 {
		t.Errorf("value = %v, want 3", c.Value())
	}

	s = NewScrubber(c, time.Second)
	s.SetTarget(1)
	s.Snap()
	if !c.AtEnd() {
		t.Error("Snap should jump to target")
	}

	s.Stop()
	s.SetTarget(0)
	s.Step(time.Second)
	s.Snap()
	if !c.AtEnd() {
		t.Error("stopped scrubber should not move the controller")
	}
}
