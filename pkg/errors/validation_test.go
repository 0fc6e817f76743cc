package errors

import (
	"strings"
	"testing"
)

func TestValidateSceneName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "scene3", false},
		{"valid with dash", "store-interior", false},
		{"valid with underscore", "frames_1", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"uppercase", "Scene3", true},
		{"leading dash", "-scene", true},
		{"path traversal", "../scene", true},
		{"slash", "a/b", true},
		{"space", "scene 3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSceneName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSceneName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidScene) {
				t.Errorf("ValidateSceneName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidScene)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://dev.heyharoon.io/scene3/samples_frames/frame", false},
		{"http", "http://dev.heyharoon.io/frames1/samples_frames/frame", false},
		{"file", "file:///srv/frames/frame", false},
		{"plain path", "testdata/frames/frame", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com/frame", true},
		{"javascript", "javascript://alert(1)", true},
		{"control char", "https://example.com/\x01frame", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBaseURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "frames/frame1.jpg", false},
		{"nested", "scenes/scene3/frame240.jpg", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "frames/../../etc", true},
		{"backslash", "frames\\frame1.jpg", true},
		{"null byte", "frame\x001.jpg", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
