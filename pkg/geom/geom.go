// Package geom provides the screen-space geometry primitives shared by the
// layout strategies, the hit-test index, and the renderers.
//
// All coordinates are in user units (typically pixels). Rectangles are
// axis-aligned with the origin at the top-left corner and Y growing
// downward, matching SVG and terminal coordinate conventions.
package geom

import "math"

// Eps is the tolerance used for floating-point geometry comparisons.
// Rectangle edges closer than Eps are considered touching, not overlapping.
const Eps = 1e-9

// Point is a position in screen space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
// Width and Height are expected to be non-negative; use Normalize to repair
// rectangles built from untrusted input.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Area returns the rectangle's area. Empty rectangles have area 0.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= Eps || r.H <= Eps }

// Contains reports whether p lies inside the rectangle.
// Points on the left/top edges are inside; points on the right/bottom
// edges are outside, so adjacent rectangles never both claim a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// ContainsRect reports whether o lies fully inside r, within Eps.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X-Eps && o.Y >= r.Y-Eps &&
		o.Right() <= r.Right()+Eps && o.Bottom() <= r.Bottom()+Eps
}

// Intersects reports whether the two rectangles overlap with positive area.
// Rectangles that merely share an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right()-Eps && o.X < r.Right()-Eps &&
		r.Y < o.Bottom()-Eps && o.Y < r.Bottom()-Eps
}

// Intersect returns the overlapping region of the two rectangles, or a
// zero Rect if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x := math.Max(r.X, o.X)
	y := math.Max(r.Y, o.Y)
	right := math.Min(r.Right(), o.Right())
	bottom := math.Min(r.Bottom(), o.Bottom())
	if right-x <= 0 || bottom-y <= 0 {
		return Rect{}
	}
	return Rect{X: x, Y: y, W: right - x, H: bottom - y}
}

// Inset shrinks the rectangle by d on every side. If the rectangle is too
// small to inset, the result collapses to a zero-size rectangle at the
// center rather than going negative.
func (r Rect) Inset(d float64) Rect {
	if d <= 0 {
		return r
	}
	if r.W <= 2*d || r.H <= 2*d {
		c := r.Center()
		return Rect{X: c.X, Y: c.Y}
	}
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Clamp returns the part of r that lies inside bounds.
// The result is never negative-sized.
func (r Rect) Clamp(bounds Rect) Rect {
	return bounds.Intersect(r)
}

// Normalize repairs a rectangle built from untrusted input: NaN or
// infinite components become zero and negative sizes are clamped to zero.
// Degenerate viewports arise from transient UI states (e.g. a window
// resize mid-drag) and must not propagate into layout math.
func (r Rect) Normalize() Rect {
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	r.X, r.Y, r.W, r.H = fix(r.X), fix(r.Y), fix(r.W), fix(r.H)
	if r.W < 0 {
		r.W = 0
	}
	if r.H < 0 {
		r.H = 0
	}
	return r
}
