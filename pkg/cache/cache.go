// Package cache provides byte-level caching for scan snapshots, layout
// scenes, and rendered artifacts.
//
// This package defines the Cache interface with implementations for
// different deployments:
//   - memory: In-memory storage for development/testing
//   - file: File-based storage for CLI usage
//   - redis: Redis-backed storage for multi-instance server deployments
//   - null: No-op cache when caching is disabled
//
// Keys are built by a Keyer so that CLI, server, and tests agree on the
// key scheme. Every input that changes the cached bytes participates in
// the key; the tree's version token keys snapshots and scenes so a rescan
// naturally leaves stale entries behind to expire.
//
// # Usage
//
// Create a cache and a keyer:
//
//	c, err := cache.NewFileCache(dir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	keyer := cache.NewDefaultKeyer()
//
//	key := keyer.SceneKey(tree.Version(), cache.SceneKeyOpts{
//	    Kind:       "treemap",
//	    ZoomBucket: 9,
//	})
//	if data, hit, err := c.Get(ctx, key); err == nil && hit {
//	    return decodeScene(data)
//	}
package cache

import (
	"context"
	"time"
)

// Default TTLs per cached artifact class.
const (
	// TTLSnapshot covers serialized scan snapshots. Filesystems change
	// out from under us, so snapshots age out daily.
	TTLSnapshot = 24 * time.Hour

	// TTLScene covers serialized layout scenes.
	TTLScene = time.Hour

	// TTLArtifact covers rendered outputs (SVG, PNG, DOT).
	TTLArtifact = time.Hour
)

// Cache is the interface all cache backends implement.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found;
	// a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SceneKeyOpts are the layout inputs that shape a cached scene.
type SceneKeyOpts struct {
	Root       int32
	Kind       string
	ZoomBucket int
	ViewportW  int
	ViewportH  int
	DepthLimit int
}

// ArtifactKeyOpts are the render inputs that shape a cached artifact.
type ArtifactKeyOpts struct {
	Format string
	Width  float64
	Height float64
}

// Keyer generates cache keys. CLI, server, and worker components share a
// Keyer so their caches interoperate.
type Keyer interface {
	// SnapshotKey keys a serialized tree snapshot by its scan ID.
	SnapshotKey(scanID string) string

	// SceneKey keys a serialized layout scene by tree version and the
	// quantized layout inputs.
	SceneKey(version string, opts SceneKeyOpts) string

	// ArtifactKey keys a rendered artifact by the scene hash and render
	// options.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SnapshotKey generates a key for snapshot caching.
func (k *DefaultKeyer) SnapshotKey(scanID string) string {
	return "snapshot:" + scanID
}

// SceneKey generates a key for layout scene caching.
func (k *DefaultKeyer) SceneKey(version string, opts SceneKeyOpts) string {
	return hashKey("scene", version, opts)
}

// ArtifactKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
