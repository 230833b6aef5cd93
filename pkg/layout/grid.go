package layout

import (
	"math"

	"github.com/matzehuels/treescope/pkg/geom"
)

// gridPartition splits inner into a near-square cell grid for n children:
// cols = ceil(sqrt(n)), rows = ceil(n/cols), assigned row-major in stable
// child order. Cell boundaries are computed from the enclosing rect rather
// than accumulated, so the cells tile inner exactly with no float drift.
//
// Trailing cells of a partially filled last row stay empty; the returned
// slice always has exactly n entries.
func gridPartition(n int, inner geom.Rect) []geom.Rect {
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []geom.Rect{inner}
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	cells := make([]geom.Rect, n)
	for i := 0; i < n; i++ {
		row := i / cols
		col := i % cols
		x0 := inner.X + inner.W*float64(col)/float64(cols)
		x1 := inner.X + inner.W*float64(col+1)/float64(cols)
		y0 := inner.Y + inner.H*float64(row)/float64(rows)
		y1 := inner.Y + inner.H*float64(row+1)/float64(rows)
		cells[i] = geom.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
	}
	return cells
}
