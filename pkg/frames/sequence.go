package frames

import (
	"image"
	"sort"
)

// SlotState is the lifecycle of one requested frame.
type SlotState int

const (
	SlotPending SlotState = iota // request issued, no answer yet
	SlotLoaded                   // image decoded and stored
	SlotAbsent                   // load failed; kept for diagnostics
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotLoaded:
		return "loaded"
	case SlotAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Slot is the record kept for each requested frame number. Slots are never
// removed; a failed frame stays as SlotAbsent with its error.
type Slot struct {
	Number int
	State  SlotState
	Image  image.Image
	Err    error
}

// Frame is a successfully loaded image and its frame number.
type Frame struct {
	Number int
	Image  image.Image
}

// Sequence is the ordered set of successfully loaded frames. It is built once
// per load and not modified afterwards, so concurrent readers need no locking.
type Sequence struct {
	spec    Spec
	numbers []int
	images  map[int]image.Image
}

// NewSequence builds a Sequence from frames in any order. Frames are sorted
// by number; duplicates keep the last image given.
func NewSequence(spec Spec, frames []Frame) *Sequence {
	images := make(map[int]image.Image, len(frames))
	for _, f := range frames {
		if f.Image != nil {
			images[f.Number] = f.Image
		}
	}
	numbers := make([]int, 0, len(images))
	for n := range images {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return &Sequence{spec: spec, numbers: numbers, images: images}
}

// Spec returns the spec the sequence was loaded from.
func (s *Sequence) Spec() Spec { return s.spec }

// Len returns the number of loaded frames.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.numbers)
}

// Empty reports whether no frame loaded. A nil Sequence is empty.
func (s *Sequence) Empty() bool { return s.Len() == 0 }

// Base is the frame number that virtual position 0 maps to.
func (s *Sequence) Base() int { return s.spec.First }

// VirtualCount is the number of virtual playback positions.
func (s *Sequence) VirtualCount() int { return s.spec.VirtualCount() }

// Numbers returns a copy of the loaded frame numbers in ascending order.
func (s *Sequence) Numbers() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.numbers))
	copy(out, s.numbers)
	return out
}

// Image returns the image for frame n, or nil if it did not load.
func (s *Sequence) Image(n int) image.Image {
	if s == nil {
		return nil
	}
	return s.images[n]
}

// Frames returns the loaded frames in ascending order.
func (s *Sequence) Frames() []Frame {
	if s == nil {
		return nil
	}
	out := make([]Frame, len(s.numbers))
	for i, n := range s.numbers {
		out[i] = Frame{Number: n, Image: s.images[n]}
	}
	return out
}

// Dense reports whether every frame between the first and last loaded frame
// is present, i.e. consecutive loaded frames differ by exactly one.
func (s *Sequence) Dense() bool {
	if s.Len() < 2 {
		return true
	}
	return s.numbers[len(s.numbers)-1]-s.numbers[0] == len(s.numbers)-1
}

// Nearest returns the closest loaded frame at or below target and the closest
// at or above it. Targets outside the loaded range clamp to the nearest end,
// so lower == upper. ok is false when the sequence is empty.
func (s *Sequence) Nearest(target float64) (lower, upper int, ok bool) {
	if s.Empty() {
		return 0, 0, false
	}
	nums := s.numbers
	if target <= float64(nums[0]) {
		return nums[0], nums[0], true
	}
	if last := nums[len(nums)-1]; target >= float64(last) {
		return last, last, true
	}
	// First index whose frame is >= target.
	i := sort.Search(len(nums), func(i int) bool { return float64(nums[i]) >= target })
	upper = nums[i]
	if float64(upper) == target {
		return upper, upper, true
	}
	return nums[i-1], upper, true
}
