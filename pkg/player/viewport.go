package player

import (
	"encoding/json"
	"fmt"
	"strings"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/render"
)

// Edge is a boundary of a pinned scroll section.
type Edge int

const (
	EdgeStart Edge = iota // section left or re-entered at the top
	EdgeEnd               // section left or re-entered at the bottom
)

func (e Edge) String() string {
	if e == EdgeEnd {
		return "end"
	}
	return "start"
}

// Handlers are the inputs a Viewport forwards to the player.
//
// OnWheel and OnTouchDrag return whether the player consumed the input. A
// false return means the sequence is at a boundary (or not ready) and the
// host should release capture so the page scrolls normally.
type Handlers struct {
	OnResize         func(w, h int)
	OnScrollProgress func(p float64)
	OnWheel          func(dy float64) (captured bool)
	OnTouchDrag      func(dy float64) (captured bool)
	OnPin            func(edge Edge)
}

// Viewport is the host surface a player is mounted into: a browser
// connection, a desktop window or an offscreen buffer.
//
// Present is called with every status change while the player holds its
// lock; implementations must not call back into the player from Present.
type Viewport interface {
	Size() (w, h int)
	Canvas() render.Canvas
	Attach(h Handlers) (detach func())
	Present(s Status)
}

// FramePresenter is implemented by viewports that ship rendered frames
// somewhere, such as over a network connection. PresentFrame runs after
// every completed render, under the player lock, so the canvas holds a
// finished frame for the duration of the call.
type FramePresenter interface {
	PresentFrame(b render.Blend)
}

// State is the lifecycle state of a mounted player.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateUnavailable
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	case StateUnmounted:
		return "unmounted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState parses the names produced by State.String.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return StateIdle, nil
	case "loading":
		return StateLoading, nil
	case "ready":
		return StateReady, nil
	case "unavailable":
		return StateUnavailable, nil
	case "unmounted":
		return StateUnmounted, nil
	default:
		return StateIdle, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "unknown player state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Status is what a player exposes to its host.
type Status struct {
	State   State   `json:"state"`
	Loaded  int     `json:"loaded"` // settled frames, failures included
	Total   int     `json:"total"`
	Failed  int     `json:"failed"`
	Percent float64 `json:"percent"` // 0..100
}

// Loading reports whether the player is still fetching frames.
func (s Status) Loading() bool { return s.State == StateLoading }

// Message is a short human-readable status line.
func (s Status) Message() string {
	switch s.State {
	case StateLoading:
		return fmt.Sprintf("Loading %.0f%%", s.Percent)
	case StateUnavailable:
		return "Experience unavailable"
	case StateReady:
		if s.Failed > 0 {
			return fmt.Sprintf("Ready (%d of %d frames missing)", s.Failed, s.Total)
		}
		return "Ready"
	default:
		return s.State.String()
	}
}

// String returns the status as JSON.
func (s Status) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}
