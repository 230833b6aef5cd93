// # Force-directed partition
//
// Siblings are modeled as point charges: every pair repels with an
// inverse-square force, and every node is pulled toward the parent
// center by a spring anchored at an ideal radius derived from the node's
// size. Integration is a pure fold over a bounded step count - each step
// maps the previous state to the next - with velocity damping strictly
// below one, so total kinetic energy decays and the fold converges.
//
// The simulation is seeded from a deterministic circular arrangement in
// stable child order, never from randomness: repeated invocations with
// identical input produce identical output, which the layout cache and
// the reproducibility tests rely on. Physical accuracy beyond visual
// stability is not a goal; non-convergence within the step budget is not
// an error, the partial state is still a valid layout.
package layout

import (
	"math"

	"github.com/matzehuels/treescope/pkg/geom"
)

// ForceConfig tunes the force-directed strategy.
type ForceConfig struct {
	Steps     int     // integration step budget
	DT        float64 // time step
	Damping   float64 // velocity decay per step, must be < 1
	Repulsion float64 // pairwise repulsion strength (relative to bounds)
	Spring    float64 // attraction strength toward the ideal radius
	Epsilon   float64 // kinetic energy threshold for early exit
}

// DefaultForceConfig returns the tuning used when the caller leaves the
// config zero-valued.
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		Steps:     200,
		DT:        0.02,
		Damping:   0.85,
		Repulsion: 0.02,
		Spring:    4.0,
		Epsilon:   1e-6,
	}
}

func (c *ForceConfig) setDefaults() {
	d := DefaultForceConfig()
	if c.Steps == 0 {
		c.Steps = d.Steps
	}
	if c.DT == 0 {
		c.DT = d.DT
	}
	if c.Damping == 0 {
		c.Damping = d.Damping
	}
	if c.Damping >= 1 {
		// Damping at or above one would never converge.
		c.Damping = d.Damping
	}
	if c.Repulsion == 0 {
		c.Repulsion = d.Repulsion
	}
	if c.Spring == 0 {
		c.Spring = d.Spring
	}
	if c.Epsilon == 0 {
		c.Epsilon = d.Epsilon
	}
}

// forceState is the transient per-run simulation state. It exists only
// for the duration of one partition call; only the final positions
// survive, as rectangle centers.
type forceState struct {
	pos []geom.Point
	vel []geom.Point
}

// energy returns the total kinetic energy of the state.
func (s forceState) energy() float64 {
	var e float64
	for _, v := range s.vel {
		e += v.X*v.X + v.Y*v.Y
	}
	return e
}

// forcePartition places the weighted children inside inner using the
// damped simulation, then converts final positions to center-anchored
// rectangles sized by the square root of each weight. A bounded
// separation pass afterwards removes any residual sibling overlap.
func forcePartition(weights []float64, inner geom.Rect, cfg ForceConfig, minCell float64) []geom.Rect {
	n := len(weights)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []geom.Rect{inner}
	}
	cfg.setDefaults()

	minDim := math.Min(inner.W, inner.H)
	center := inner.Center()
	radii := idealRadii(weights, minDim)

	state := seedCircle(n, center, minDim/3)
	for step := 0; step < cfg.Steps; step++ {
		state = integrate(state, center, radii, cfg, minDim)
		if state.energy() < cfg.Epsilon {
			break
		}
	}

	cells := rectsAround(state.pos, weights, inner, minCell)
	separate(cells, inner)
	return cells
}

// seedCircle arranges n points evenly on a circle in child order.
func seedCircle(n int, center geom.Point, radius float64) forceState {
	s := forceState{
		pos: make([]geom.Point, n),
		vel: make([]geom.Point, n),
	}
	for i := range s.pos {
		angle := 2 * math.Pi * float64(i) / float64(n)
		s.pos[i] = geom.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return s
}

// idealRadii derives each node's preferred distance from the parent
// center: larger nodes sit further out so they have room.
func idealRadii(weights []float64, minDim float64) []float64 {
	maxW := 0.0
	for _, w := range weights {
		if w > maxW {
			maxW = w
		}
	}
	if maxW <= 0 {
		maxW = 1
	}
	radii := make([]float64, len(weights))
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		radii[i] = minDim * (0.12 + 0.25*math.Sqrt(w/maxW))
	}
	return radii
}

// integrate produces the next simulation state from the previous one:
// accumulate forces, integrate velocity and position, damp.
func integrate(prev forceState, center geom.Point, radii []float64, cfg ForceConfig, minDim float64) forceState {
	n := len(prev.pos)
	next := forceState{
		pos: make([]geom.Point, n),
		vel: make([]geom.Point, n),
	}
	rep := cfg.Repulsion * minDim * minDim

	for i := 0; i < n; i++ {
		var fx, fy float64

		// Pairwise sibling repulsion, inverse-square with a floor on the
		// distance so coincident seeds cannot produce infinite force.
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dx := prev.pos[i].X - prev.pos[j].X
			dy := prev.pos[i].Y - prev.pos[j].Y
			d2 := dx*dx + dy*dy
			if d2 < 1 {
				d2 = 1
				// Deterministic tie-break for coincident points.
				dx, dy = 1, float64(i-j)
			}
			d := math.Sqrt(d2)
			f := rep / d2
			fx += f * dx / d
			fy += f * dy / d
		}

		// Spring toward the ideal radius around the parent center.
		dx := prev.pos[i].X - center.X
		dy := prev.pos[i].Y - center.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if d < 1e-6 {
			d = 1e-6
			dx = 1
		}
		stretch := d - radii[i]
		fx -= cfg.Spring * stretch * dx / d
		fy -= cfg.Spring * stretch * dy / d

		vx := (prev.vel[i].X + fx*cfg.DT) * cfg.Damping
		vy := (prev.vel[i].Y + fy*cfg.DT) * cfg.Damping
		next.vel[i] = geom.Point{X: vx, Y: vy}
		next.pos[i] = geom.Point{
			X: prev.pos[i].X + vx*cfg.DT,
			Y: prev.pos[i].Y + vy*cfg.DT,
		}
	}
	return next
}

// rectsAround converts resting positions to rectangles centered on each
// node, sized by sqrt(weight) relative to the largest sibling, clamped
// into inner.
func rectsAround(pos []geom.Point, weights []float64, inner geom.Rect, minCell float64) []geom.Rect {
	maxW := 0.0
	for _, w := range weights {
		if w > maxW {
			maxW = w
		}
	}
	if maxW <= 0 {
		maxW = 1
	}
	minDim := math.Min(inner.W, inner.H)
	// Cap the side so a handful of large siblings cannot blanket the
	// parent; sqrt keeps area roughly proportional to weight.
	maxSide := minDim / math.Max(2, math.Sqrt(float64(len(pos))))

	cells := make([]geom.Rect, len(pos))
	for i, p := range pos {
		w := weights[i]
		if w < 0 {
			w = 0
		}
		side := maxSide * (0.3 + 0.7*math.Sqrt(w/maxW))
		if side < minCell {
			side = minCell
		}
		if side > minDim {
			side = minDim
		}
		x := clampf(p.X-side/2, inner.X, inner.Right()-side)
		y := clampf(p.Y-side/2, inner.Y, inner.Bottom()-side)
		cells[i] = geom.Rect{X: x, Y: y, W: side, H: side}
	}
	return cells
}

// separate removes residual overlap between sibling rectangles: pairs are
// pushed apart along their center delta, re-clamped into inner, and if a
// bounded number of passes cannot resolve everything, all rectangles are
// shrunk around their centers and the passes repeat. Shrinking strictly
// reduces overlap between distinct centers, so the loop terminates.
func separate(cells []geom.Rect, inner geom.Rect) {
	const (
		passes = 24
		rounds = 8
		shrink = 0.85
	)
	for round := 0; round < rounds; round++ {
		clean := false
		for pass := 0; pass < passes; pass++ {
			clean = true
			for i := 0; i < len(cells); i++ {
				for j := i + 1; j < len(cells); j++ {
					if !cells[i].Intersects(cells[j]) {
						continue
					}
					clean = false
					pushApart(&cells[i], &cells[j], inner)
				}
			}
			if clean {
				return
			}
		}
		// Could not separate at this scale; shrink everything and retry.
		for i := range cells {
			c := cells[i].Center()
			w := cells[i].W * shrink
			h := cells[i].H * shrink
			cells[i] = geom.Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
		}
	}
	// Last resort: collapse remaining offenders to points; a zero-area
	// rect cannot overlap.
	for i := 0; i < len(cells); i++ {
		for j := i + 1; j < len(cells); j++ {
			if cells[i].Intersects(cells[j]) {
				c := cells[j].Center()
				cells[j] = geom.Rect{X: c.X, Y: c.Y}
			}
		}
	}
}

// pushApart translates the pair away from each other along the overlap's
// smaller axis, keeping both inside inner.
func pushApart(a, b *geom.Rect, inner geom.Rect) {
	ov := a.Intersect(*b)
	ca, cb := a.Center(), b.Center()

	if ov.W < ov.H {
		// Separate horizontally.
		d := ov.W/2 + geom.Eps
		if ca.X <= cb.X {
			a.X -= d
			b.X += d
		} else {
			a.X += d
			b.X -= d
		}
	} else {
		d := ov.H/2 + geom.Eps
		if ca.Y <= cb.Y {
			a.Y -= d
			b.Y += d
		} else {
			a.Y += d
			b.Y -= d
		}
	}

	a.X = clampf(a.X, inner.X, inner.Right()-a.W)
	a.Y = clampf(a.Y, inner.Y, inner.Bottom()-a.H)
	b.X = clampf(b.X, inner.X, inner.Right()-b.W)
	b.Y = clampf(b.Y, inner.Y, inner.Bottom()-b.H)
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
