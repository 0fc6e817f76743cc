package playback

import (
	"math"
	"time"
)

// DefaultScrubLag is how long the scrubber takes to mostly catch up with
// its target.
const DefaultScrubLag = 500 * time.Millisecond

// scrubEpsilon is the progress distance at which the scrubber snaps.
const scrubEpsilon = 1e-4

// Scrubber eases a Controller toward a target progress instead of jumping,
// so scrolled scenes follow the scrollbar with a short lag.
//
// Each Step closes the remaining distance exponentially: after one lag
// duration about 95% of the gap is gone.
type Scrubber struct {
	ctrl    *Controller
	lag     time.Duration
	target  float64
	stopped bool
}

// NewScrubber eases ctrl. A lag <= 0 makes SetTarget apply immediately.
func NewScrubber(ctrl *Controller, lag time.Duration) *Scrubber {
	return &Scrubber{ctrl: ctrl, lag: lag, target: ctrl.Progress()}
}

// SetTarget sets the progress to ease toward, clamped to [0, 1].
func (s *Scrubber) SetTarget(p float64) {
	if s.stopped || math.IsNaN(p) {
		return
	}
	s.target = clamp(p, 0, 1)
	if s.lag <= 0 {
		s.ctrl.SetFromNormalizedProgress(s.target)
	}
}

// Target returns the current target progress.
func (s *Scrubber) Target() float64 { return s.target }

// Settled reports whether the controller has reached the target.
func (s *Scrubber) Settled() bool {
	return math.Abs(s.ctrl.Progress()-s.target) < scrubEpsilon
}

// Step advances the easing by dt and reports whether the position changed.
func (s *Scrubber) Step(dt time.Duration) bool {
	if s.stopped || dt <= 0 {
		return false
	}
	cur := s.ctrl.Progress()
	gap := s.target - cur
	if gap == 0 {
		return false
	}
	if math.Abs(gap) < scrubEpsilon || s.lag <= 0 {
		s.ctrl.SetFromNormalizedProgress(s.target)
		return true
	}
	// 1 - e^(-3) ~ 0.95 of the gap per lag.
	k := 1 - math.Exp(-3*dt.Seconds()/s.lag.Seconds())
	next := cur + gap*k
	if math.Abs(s.target-next) < scrubEpsilon {
		next = s.target
	}
	s.ctrl.SetFromNormalizedProgress(next)
	return true
}

// Snap jumps straight to the target.
func (s *Scrubber) Snap() {
	if s.stopped {
		return
	}
	s.ctrl.SetFromNormalizedProgress(s.target)
}

// Stop freezes the scrubber; later calls are no-ops.
func (s *Scrubber) Stop() { s.stopped = true }
