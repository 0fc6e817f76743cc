package player

import (
	"fmt"
	"strings"
	"time"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/playback"
	"github.com/heyharoon/vpo/pkg/render"
)

// DrivingMode selects which input moves the playback position.
type DrivingMode int

const (
	// ScrollPin maps a pinned section's scroll progress onto the sequence.
	ScrollPin DrivingMode = iota
	// WheelCapture advances on wheel and touch deltas while the viewport
	// holds input capture.
	WheelCapture
	// TouchCapture advances on touch drags only.
	TouchCapture
)

func (m DrivingMode) String() string {
	switch m {
	case ScrollPin:
		return "scroll-pin"
	case WheelCapture:
		return "wheel-capture"
	case TouchCapture:
		return "touch-capture"
	default:
		return fmt.Sprintf("DrivingMode(%d)", int(m))
	}
}

// ParseDrivingMode parses "scroll-pin", "wheel-capture" or "touch-capture".
func ParseDrivingMode(s string) (DrivingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scroll-pin":
		return ScrollPin, nil
	case "wheel-capture":
		return WheelCapture, nil
	case "touch-capture":
		return TouchCapture, nil
	default:
		return ScrollPin, vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "unknown driving mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m DrivingMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DrivingMode) UnmarshalText(b []byte) error {
	v, err := ParseDrivingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DefaultScrollPerFrame is the scroll distance in pixels per virtual frame.
const DefaultScrollPerFrame = 10

// Config parameterizes a Player. The zero value of every optional field
// selects a default.
type Config struct {
	Scene string      // name used in logs and metrics
	Spec  frames.Spec // frames to load

	BatchSize  int           // default loader.DefaultBatchSize
	Priority   []int         // frames loaded first, as their own batch
	Retries    int           // total attempts per frame; <= 1 disables retry
	RetryDelay time.Duration // initial backoff between attempts

	DrivingMode   DrivingMode
	Interpolation render.Interpolation

	WheelSensitivity float64       // default playback.DefaultWheelSensitivity
	TouchSensitivity float64       // default playback.DefaultTouchSensitivity
	ScrubLag         time.Duration // scroll-pin easing; 0 follows scroll exactly
	ScrollPerFrame   float64       // pixels of page scroll per virtual frame

	Host string // reported in metrics: cli, server or desktop
}

// Validate checks the spec and tunables.
func (c Config) Validate() error {
	if err := c.Spec.Validate(); err != nil {
		return err
	}
	if c.BatchSize < 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "batch size must be >= 0, got %d", c.BatchSize)
	}
	if c.WheelSensitivity < 0 || c.TouchSensitivity < 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "sensitivities must be >= 0")
	}
	if c.ScrubLag < 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "scrub lag must be >= 0")
	}
	if c.ScrollPerFrame < 0 {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidConfig, "scroll per frame must be >= 0")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = loader.DefaultBatchSize
	}
	if c.WheelSensitivity == 0 {
		c.WheelSensitivity = playback.DefaultWheelSensitivity
	}
	if c.TouchSensitivity == 0 {
		c.TouchSensitivity = playback.DefaultTouchSensitivity
	}
	if c.ScrollPerFrame == 0 {
		c.ScrollPerFrame = DefaultScrollPerFrame
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return c
}

// ScrollRange is the page scroll distance, in pixels, that maps to the
// whole sequence in scroll-pin mode.
func (c Config) ScrollRange() float64 {
	c = c.withDefaults()
	return c.ScrollPerFrame * float64(c.Spec.VirtualCount())
}
