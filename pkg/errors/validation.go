package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// sceneNameRegex matches scene names usable in URLs and cache keys.
var sceneNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateSceneName validates a scene name for safety and correctness.
// Scene names appear in URL paths and cache keys, so the rules are conservative:
//   - No empty names
//   - Maximum length of 64 characters
//   - Lowercase letters, digits, '-' and '_' only, starting with a letter or digit
func ValidateSceneName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidScene, "scene name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidScene, "scene name too long (max 64 characters)")
	}

	if !sceneNameRegex.MatchString(name) {
		return New(ErrCodeInvalidScene, "invalid scene name: %q", name)
	}

	return nil
}

// ValidateBaseURL validates a frame base URL template.
// Remote templates must use http or https; file:// and plain paths are
// accepted for local frame directories.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidSpec, "base URL cannot be empty")
	}

	for _, r := range raw {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidSpec, "base URL contains invalid control characters")
		}
	}

	if i := strings.Index(raw, "://"); i >= 0 {
		switch raw[:i] {
		case "http", "https", "file":
		default:
			return New(ErrCodeInvalidSpec, "base URL must use http, https or file scheme")
		}
	}

	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
