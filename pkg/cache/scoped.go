package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects or users
// can share one cache backend without key collisions.
//
// Example usage:
//
//	// Per-project keys on a shared Redis
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "proj:acme:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
// A nil inner keyer falls back to the default scheme.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SnapshotKey generates a prefixed snapshot key.
func (k *ScopedKeyer) SnapshotKey(scanID string) string {
	return k.prefix + k.inner.SnapshotKey(scanID)
}

// SceneKey generates a prefixed scene key.
func (k *ScopedKeyer) SceneKey(version string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(version, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}

// Ensure ScopedKeyer implements Keyer.
var _ Keyer = (*ScopedKeyer)(nil)
