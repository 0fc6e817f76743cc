package render

import (
	"fmt"
	"strings"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
)

// Interpolation selects how gaps between loaded frames are painted.
type Interpolation int

const (
	// Nearest always draws the single closest loaded frame.
	Nearest Interpolation = iota
	// Crossfade blends the two neighbouring frames across a gap.
	Crossfade
)

func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Crossfade:
		return "crossfade"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// ParseInterpolation parses "nearest" or "crossfade".
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return Nearest, nil
	case "crossfade":
		return Crossfade, nil
	default:
		return Nearest, vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "unknown interpolation %q (want nearest or crossfade)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i Interpolation) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interpolation) UnmarshalText(b []byte) error {
	v, err := ParseInterpolation(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Blend describes which frames a position resolves to. T is the weight of
// Upper: 0 draws Lower only, 1 draws Upper only.
type Blend struct {
	Lower int
	Upper int
	T     float64
}

// Single reports whether only one frame needs drawing.
func (b Blend) Single() bool {
	return b.Lower == b.Upper || b.T <= 0 || b.T >= 1
}

// Nearest returns the frame closer to the position; ties go to Upper.
func (b Blend) Nearest() int {
	if b.T >= 0.5 {
		return b.Upper
	}
	return b.Lower
}

// Resolve maps a virtual position to the surrounding loaded frames. The
// target frame number is seq.Base()+position. ok is false for an empty
// sequence.
func Resolve(position float64, seq *frames.Sequence) (Blend, bool) {
	if seq.Empty() {
		return Blend{}, false
	}
	target := float64(seq.Base()) + position
	lower, upper, ok := seq.Nearest(target)
	if !ok {
		return Blend{}, false
	}
	b := Blend{Lower: lower, Upper: upper}
	if upper != lower {
		b.T = (target - float64(lower)) / float64(upper-lower)
	}
	return b, true
}
