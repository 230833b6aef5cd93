package layout

import "math"

// Zoom bounds, matching the interactive view's zoom range.
const (
	MinZoom = 1.0
	MaxZoom = 4.0

	// DepthCap is the absolute ceiling for the traversal depth limit,
	// guarding against pathological tree depth producing unbounded
	// rectangle counts.
	DepthCap = 12

	// largeViewportArea is the viewport area (px²) above which one extra
	// level of depth is granted; a full-screen view can afford it.
	largeViewportArea = 1 << 20
)

// LOD is the resolved level of detail for one (zoom, viewport) pair.
type LOD struct {
	// DepthLimit is how many levels below the focus node are expanded;
	// deeper subtrees collapse into aggregate rectangles.
	DepthLimit int
	// Tier controls how much per-node information is rendered.
	Tier Tier
	// Strategy is the zoom-band strategy used when the caller asked for
	// [KindAuto]: grid below 2.0, treemap below 3.0, detailed above.
	Strategy Kind
	// ZoomBucket is the quarter-zoom quantization of the zoom scalar,
	// used in cache keys so continuous zoom gestures hit the cache.
	ZoomBucket int
}

// ClampZoom bounds a zoom scalar to [MinZoom, MaxZoom].
// NaN is treated as the minimum: it arises from transient division by a
// zero viewport dimension and must not poison downstream math.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Resolve maps a zoom scalar and viewport area to a level of detail.
//
// Resolve is a pure function: identical inputs always yield identical
// output, so cache keys can be built from its results without re-derivation.
// Both the tier and the depth limit grow monotonically with zoom for any
// fixed viewport.
func Resolve(zoom, viewportArea float64, maxDepth int) LOD {
	zoom = ClampZoom(zoom)
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > DepthCap {
		maxDepth = DepthCap
	}

	var tier Tier
	switch {
	case zoom < 1.75:
		tier = TierOverview
	case zoom < 2.5:
		tier = TierLabeled
	case zoom < 3.25:
		tier = TierPreview
	default:
		tier = TierFull
	}

	var strategy Kind
	switch {
	case zoom < 2.0:
		strategy = KindGrid
	case zoom < 3.0:
		strategy = KindTreemap
	default:
		strategy = KindDetailed
	}

	// Linear ramp from 1 at minimum zoom to maxDepth at maximum zoom.
	span := float64(maxDepth - 1)
	depth := 1 + int(math.Floor((zoom-MinZoom)/(MaxZoom-MinZoom)*span+geomEps))
	if viewportArea >= largeViewportArea {
		depth++
	}
	if depth > DepthCap {
		depth = DepthCap
	}

	return LOD{
		DepthLimit: depth,
		Tier:       tier,
		Strategy:   strategy,
		ZoomBucket: int(math.Round(zoom * 4)),
	}
}

// geomEps absorbs float error at exact band boundaries so that e.g.
// zoom 4.0 resolves the full configured depth.
const geomEps = 1e-9
