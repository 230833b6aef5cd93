// # Squarified treemap partition
//
// Implements the squarify heuristic (Bruls, Huizing, van Wijk): children
// are taken in descending size order and greedily accumulated into a row
// as long as adding the next child does not worsen the row's worst aspect
// ratio. When it would, the row is closed, laid out along the shorter
// remaining dimension, and the algorithm recurses on the shrunk remainder.
//
// Qualities guaranteed (and tested): the cells tile the input rectangle
// exactly (area conservation), never overlap, and preserve a minimum area
// floor so zero-size nodes remain clickable. Globally optimal aspect
// ratios are explicitly not a goal - the greedy row rule is the contract.
package layout

import (
	"math"
	"sort"

	"github.com/matzehuels/treescope/pkg/geom"
)

// squarify partitions inner among len(weights) children with areas
// proportional to the weights. The result is indexed in the caller's
// child order; ties in weight keep that order (stable sort).
func squarify(weights []float64, inner geom.Rect, minCell float64) []geom.Rect {
	n := len(weights)
	if n == 0 {
		return nil
	}
	cells := make([]geom.Rect, n)
	if n == 1 {
		cells[0] = inner
		return cells
	}
	if inner.Empty() {
		return cells
	}

	areas := scaleAreas(weights, inner.Area(), minCell*minCell)

	// Descending by area, stable in child order for ties.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	remaining := inner
	row := make([]int, 0, n)
	pos := 0
	for pos < n {
		side := shorterSide(remaining)
		next := order[pos]

		if len(row) == 0 || worst(areas, append(row, next), side) <= worst(areas, row, side) {
			row = append(row, next)
			pos++
			continue
		}

		remaining = layRow(cells, areas, row, remaining)
		row = row[:0]
	}
	if len(row) > 0 {
		layRow(cells, areas, row, remaining)
	}
	return cells
}

// scaleAreas converts weights to areas summing exactly to total, applying
// a minimum-area floor first so zero-size children still get visible,
// clickable cells. A degenerate all-zero weight vector falls back to
// equal areas.
func scaleAreas(weights []float64, total, minArea float64) []float64 {
	areas := make([]float64, len(weights))
	var sum float64
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		areas[i] = w
		sum += w
	}
	if sum <= 0 {
		for i := range areas {
			areas[i] = 1
		}
		sum = float64(len(areas))
	}

	// Floor in weight space: the floor is the weight that would map to
	// minArea under proportional scaling.
	floor := minArea / total * sum
	var floored float64
	for i := range areas {
		if areas[i] < floor {
			areas[i] = floor
		}
		floored += areas[i]
	}
	scale := total / floored
	for i := range areas {
		areas[i] *= scale
	}
	return areas
}

// worst returns the worst (largest) aspect ratio the row would have if
// packed into a strip along a side of the given length.
func worst(areas []float64, row []int, side float64) float64 {
	if len(row) == 0 || side <= 0 {
		return math.Inf(1)
	}
	var sum float64
	minA, maxA := math.Inf(1), 0.0
	for _, i := range row {
		a := areas[i]
		sum += a
		if a < minA {
			minA = a
		}
		if a > maxA {
			maxA = a
		}
	}
	if sum <= 0 || minA <= 0 {
		return math.Inf(1)
	}
	s2 := sum * sum
	w2 := side * side
	return math.Max(w2*maxA/s2, s2/(w2*minA))
}

// layRow packs the row into a strip along the shorter dimension of
// remaining, writes the cells, and returns the shrunk remainder. Cell
// boundaries come from cumulative fractions of the row total so each
// strip tiles exactly.
func layRow(cells []geom.Rect, areas []float64, row []int, remaining geom.Rect) geom.Rect {
	var rowArea float64
	for _, i := range row {
		rowArea += areas[i]
	}
	if rowArea <= 0 || remaining.Empty() {
		return remaining
	}

	if remaining.W >= remaining.H {
		// Vertical strip on the left, items stacked top to bottom.
		stripW := rowArea / remaining.H
		if stripW > remaining.W {
			stripW = remaining.W
		}
		var cum float64
		for _, i := range row {
			y0 := remaining.Y + remaining.H*cum/rowArea
			cum += areas[i]
			y1 := remaining.Y + remaining.H*cum/rowArea
			cells[i] = geom.Rect{X: remaining.X, Y: y0, W: stripW, H: y1 - y0}
		}
		return geom.Rect{X: remaining.X + stripW, Y: remaining.Y, W: remaining.W - stripW, H: remaining.H}
	}

	// Horizontal strip on top, items left to right.
	stripH := rowArea / remaining.W
	if stripH > remaining.H {
		stripH = remaining.H
	}
	var cum float64
	for _, i := range row {
		x0 := remaining.X + remaining.W*cum/rowArea
		cum += areas[i]
		x1 := remaining.X + remaining.W*cum/rowArea
		cells[i] = geom.Rect{X: x0, Y: remaining.Y, W: x1 - x0, H: stripH}
	}
	return geom.Rect{X: remaining.X, Y: remaining.Y + stripH, W: remaining.W, H: remaining.H - stripH}
}

func shorterSide(r geom.Rect) float64 {
	if r.W < r.H {
		return r.W
	}
	return r.H
}
