package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "spec misuse",
			err:  New(ErrCodeInvalidSpec, "skip must be >= 1, got %d", 0),
			want: "INVALID_SPEC: skip must be >= 1, got 0",
		},
		{
			name: "loading scene",
			err:  New(ErrCodeSceneLoading, "scene %q is loading (%.0f%%)", "lobby", 40.0),
			want: `SCENE_LOADING: scene "lobby" is loading (40%)`,
		},
		{
			name: "wrapped cause",
			err:  Wrap(ErrCodeInvalidConfig, errors.New("toml: line 3"), "parse config"),
			want: "INVALID_CONFIG: parse config: toml: line 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: %w", errors.New("connection refused"))
	err := Wrap(ErrCodeNetwork, cause, "fetch %s", "frame12.jpg")

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if got := errors.Unwrap(err); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
	if got := UserMessage(err); got != "fetch frame12.jpg" {
		t.Errorf("UserMessage() = %q, want %q", got, "fetch frame12.jpg")
	}
}

func TestIsAndGetCode(t *testing.T) {
	frameErr := New(ErrCodeFrameNotFound, "frame %s failed to load", "frame7.jpg")
	// Config validation re-wraps a scene error under its own code.
	sceneErr := Wrap(GetCode(frameErr), frameErr, "scene %q", "lobby")

	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"direct", frameErr, ErrCodeFrameNotFound, true},
		{"other code", frameErr, ErrCodeSceneNotFound, false},
		{"rewrapped keeps code", sceneErr, ErrCodeFrameNotFound, true},
		{"fmt wrapped", fmt.Errorf("render: %w", New(ErrCodeSceneLoading, "wait")), ErrCodeSceneLoading, true},
		{"plain error", errors.New("boom"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInvalidSpec, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v) = %v, want %v", tt.code, got, tt.want)
			}
			if tt.want && GetCode(tt.err) != tt.code {
				t.Errorf("GetCode() = %v, want %v", GetCode(tt.err), tt.code)
			}
		})
	}

	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New(ErrCodeSceneUnavailable, "Experience unavailable"), "Experience unavailable"},
		{"outermost message wins", Wrap(ErrCodeInvalidInput, New(ErrCodeInvalidSpec, "inner"), "bad interpolation"), "bad interpolation"},
		{"plain", errors.New("connection reset"), "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid spec", New(ErrCodeInvalidSpec, "bad"), 400},
		{"invalid format", New(ErrCodeInvalidFormat, "gif"), 400},
		{"scene not found", New(ErrCodeSceneNotFound, "missing"), 404},
		{"frame not found", New(ErrCodeFrameNotFound, "frame3.jpg"), 404},
		{"scene loading", New(ErrCodeSceneLoading, "wait"), 503},
		{"scene unavailable", New(ErrCodeSceneUnavailable, "cors"), 503},
		{"timeout", New(ErrCodeTimeout, "slow"), 504},
		{"network", Wrap(ErrCodeNetwork, errors.New("reset"), "fetch"), 502},
		{"unsupported", New(ErrCodeUnsupported, "webp output"), 501},
		{"invalid config is internal", New(ErrCodeInvalidConfig, "bad toml"), 500},
		{"plain error", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
