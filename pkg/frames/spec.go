// Package frames defines the data model shared by the frame loader, the
// playback controller and the renderer.
//
// A [Spec] names which still images make up a sequence: frame numbers
// First, First+Skip, ... up to Last, fetched from BaseURL + number + Ext.
// Every requested frame gets a [Slot] that records whether it loaded. The
// successfully loaded images form a [Sequence], which is ordered by frame
// number and read-only once built.
//
// Positions handed to the renderer are virtual: a sequence with First=1 and
// Last=250 has 250 virtual frames even when only every fifth one is loaded.
package frames

import (
	"fmt"
	"strings"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
)

// DefaultExt is the file extension appended to frame numbers when a Spec
// does not set one.
const DefaultExt = ".jpg"

// Spec describes which frame numbers to request and where they live.
type Spec struct {
	BaseURL string `json:"base_url" toml:"base_url"` // URL prefix, e.g. ".../samples_frames/frame"
	First   int    `json:"first" toml:"first"`       // first frame number (inclusive)
	Last    int    `json:"last" toml:"last"`         // last frame number (inclusive)
	Skip    int    `json:"skip" toml:"skip"`         // load every Skip-th frame
	Ext     string `json:"ext,omitempty" toml:"ext"` // file extension, defaults to ".jpg"
}

// Validate reports misuse of the spec. It is the only hard failure of a load.
func (s Spec) Validate() error {
	if err := vpoerrors.ValidateBaseURL(s.BaseURL); err != nil {
		return err
	}
	if s.First < 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "first must be >= 0, got %d", s.First)
	}
	if s.First > s.Last {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "first (%d) must be <= last (%d)", s.First, s.Last)
	}
	if s.Skip < 1 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "skip must be >= 1, got %d", s.Skip)
	}
	if s.Ext != "" && !strings.HasPrefix(s.Ext, ".") {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "ext must start with '.', got %q", s.Ext)
	}
	return nil
}

// Numbers returns the frame numbers to fetch in ascending order:
// First, First+Skip, ... <= Last. Its length is (Last-First)/Skip + 1.
// An invalid spec yields nil.
func (s Spec) Numbers() []int {
	if s.Skip < 1 || s.First > s.Last {
		return nil
	}
	out := make([]int, 0, (s.Last-s.First)/s.Skip+1)
	for n := s.First; n <= s.Last; n += s.Skip {
		out = append(out, n)
	}
	return out
}

// Count returns how many frames Numbers would return.
func (s Spec) Count() int {
	if s.Skip < 1 || s.First > s.Last {
		return 0
	}
	return (s.Last-s.First)/s.Skip + 1
}

// VirtualCount is the number of distinct playback positions, Last-First+1.
// It exceeds Count when Skip > 1.
func (s Spec) VirtualCount() int {
	if s.First > s.Last {
		return 0
	}
	return s.Last - s.First + 1
}

// URL builds the address of frame n.
func (s Spec) URL(n int) string {
	ext := s.Ext
	if ext == "" {
		ext = DefaultExt
	}
	return fmt.Sprintf("%s%d%s", s.BaseURL, n, ext)
}

// Contains reports whether n is one of the requested frame numbers.
func (s Spec) Contains(n int) bool {
	if s.Skip < 1 || n < s.First || n > s.Last {
		return false
	}
	return (n-s.First)%s.Skip == 0
}
