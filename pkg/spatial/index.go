// Package spatial provides the hit-test index over a laid-out scene.
//
// The index is a uniform bucket grid: each rectangle is registered in
// every grid cell it touches, so a point query only inspects the
// rectangles sharing the point's cell. Rectangle counts per frame are
// bounded by the layout depth cap, so a simple bucketed structure beats a
// full spatial tree here.
//
// An Index is immutable once built. The engine rebuilds it only when the
// layout cache produces a fresh rectangle sequence and reuses it across
// frames otherwise, keeping hover queries cheap.
package spatial

import (
	"math"
	"sort"

	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// maxGridSide bounds the bucket grid resolution.
const maxGridSide = 64

// Index answers point and region queries over one scene.
type Index struct {
	rects   []layout.PositionedRect
	bounds  geom.Rect
	cols    int
	rows    int
	buckets [][]int32 // rect indices per cell, row-major
}

// Build constructs an index over the given scene. The slice is retained
// (not copied); callers must treat it as immutable, which holds for
// cache-owned rectangle sequences.
func Build(rects []layout.PositionedRect) *Index {
	ix := &Index{rects: rects}
	if len(rects) == 0 {
		return ix
	}

	ix.bounds = sceneBounds(rects)
	side := int(math.Ceil(math.Sqrt(float64(len(rects)))))
	if side < 1 {
		side = 1
	}
	if side > maxGridSide {
		side = maxGridSide
	}
	ix.cols, ix.rows = side, side
	ix.buckets = make([][]int32, side*side)

	for i, pr := range rects {
		if pr.Rect.Empty() {
			continue
		}
		c0, r0 := ix.cell(pr.Rect.X, pr.Rect.Y)
		c1, r1 := ix.cell(pr.Rect.Right()-geom.Eps, pr.Rect.Bottom()-geom.Eps)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				b := r*ix.cols + c
				ix.buckets[b] = append(ix.buckets[b], int32(i))
			}
		}
	}
	return ix
}

// Len returns the number of indexed rectangles.
func (ix *Index) Len() int { return len(ix.rects) }

// HitTest resolves the topmost rectangle under p, preferring the greatest
// z-order when rectangles overlap (which the layout invariants forbid, but
// the index resolves defensively). Returns false when nothing is hit.
func (ix *Index) HitTest(p geom.Point) (tree.NodeID, bool) {
	if len(ix.rects) == 0 || !ix.bounds.Contains(p) {
		return 0, false
	}
	c, r := ix.cell(p.X, p.Y)

	best := -1
	for _, i := range ix.buckets[r*ix.cols+c] {
		pr := &ix.rects[i]
		if !pr.Rect.Contains(p) {
			continue
		}
		if best == -1 || pr.Z > ix.rects[best].Z || (pr.Z == ix.rects[best].Z && int(i) > best) {
			best = int(i)
		}
	}
	if best == -1 {
		return 0, false
	}
	return ix.rects[best].Node, true
}

// RectsIn returns the identities of all nodes whose rectangles intersect
// the region, de-duplicated and ordered by descending z-order (ties by
// scene order). Used for drag-selection.
func (ix *Index) RectsIn(region geom.Rect) []tree.NodeID {
	region = region.Normalize()
	if len(ix.rects) == 0 || region.Empty() || !ix.bounds.Intersects(region) {
		return nil
	}

	clipped := region.Intersect(ix.bounds)
	c0, r0 := ix.cell(clipped.X, clipped.Y)
	c1, r1 := ix.cell(clipped.Right()-geom.Eps, clipped.Bottom()-geom.Eps)

	seen := make(map[int32]struct{})
	var hits []int32
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			for _, i := range ix.buckets[r*ix.cols+c] {
				if _, dup := seen[i]; dup {
					continue
				}
				seen[i] = struct{}{}
				if ix.rects[i].Rect.Intersects(region) {
					hits = append(hits, i)
				}
			}
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		ra, rb := &ix.rects[hits[a]], &ix.rects[hits[b]]
		if ra.Z != rb.Z {
			return ra.Z > rb.Z
		}
		return hits[a] < hits[b]
	})

	ids := make([]tree.NodeID, 0, len(hits))
	dedup := make(map[tree.NodeID]struct{}, len(hits))
	for _, i := range hits {
		id := ix.rects[i].Node
		if _, dup := dedup[id]; dup {
			continue
		}
		dedup[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// cell maps a point to bucket coordinates, clamped into the grid.
func (ix *Index) cell(x, y float64) (col, row int) {
	col = int((x - ix.bounds.X) / ix.bounds.W * float64(ix.cols))
	row = int((y - ix.bounds.Y) / ix.bounds.H * float64(ix.rows))
	if col < 0 {
		col = 0
	}
	if col >= ix.cols {
		col = ix.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= ix.rows {
		row = ix.rows - 1
	}
	return col, row
}

// sceneBounds returns the union of all rectangles.
func sceneBounds(rects []layout.PositionedRect) geom.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pr := range rects {
		minX = math.Min(minX, pr.Rect.X)
		minY = math.Min(minY, pr.Rect.Y)
		maxX = math.Max(maxX, pr.Rect.Right())
		maxY = math.Max(maxY, pr.Rect.Bottom())
	}
	return geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
