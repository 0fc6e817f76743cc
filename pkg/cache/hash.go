package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer builds cache keys. Frame keys depend only on the URL; render keys
// depend on everything that changes the encoded output.
type Keyer interface {
	FrameKey(url string) string
	RenderKey(scene string, opts RenderKeyOpts) string
}

// RenderKeyOpts are the inputs that determine one encoded render.
type RenderKeyOpts struct {
	Position      float64 `json:"position"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Format        string  `json:"format"`
	Quality       int     `json:"quality,omitempty"`
	Interpolation string  `json:"interpolation"`
	Fingerprint   string  `json:"fingerprint"` // identifies the loaded frame set
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FrameKey returns "frame:<sha256(url)>".
func (DefaultKeyer) FrameKey(url string) string {
	return hashKey("frame", url)
}

// RenderKey returns "render:<scene>:<sha256(opts)>".
func (DefaultKeyer) RenderKey(scene string, opts RenderKeyOpts) string {
	return hashKey("render:"+scene, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
