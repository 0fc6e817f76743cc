package cache

// ScopedKeyer prefixes every key of an inner Keyer. The server scopes each
// scene's render keys so scenes sharing a backend never collide:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "scene:optimized:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// FrameKey returns the prefixed frame key.
func (k *ScopedKeyer) FrameKey(url string) string {
	return k.prefix + k.inner.FrameKey(url)
}

// RenderKey returns the prefixed render key.
func (k *ScopedKeyer) RenderKey(scene string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(scene, opts)
}
