package geom

import (
	"math"
	"testing"
)

func TestRectArea(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
		want float64
	}{
		{
			name: "unit square",
			rect: Rect{W: 1, H: 1},
			want: 1,
		},
		{
			name: "viewport sized",
			rect: Rect{X: 10, Y: 20, W: 800, H: 600},
			want: 480000,
		},
		{
			name: "zero width",
			rect: Rect{W: 0, H: 100},
			want: 0,
		},
		{
			name: "negative size clamps to zero",
			rect: Rect{W: -5, H: 10},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Area(); got != tt.want {
				t.Errorf("Area() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 20}

	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"center", Point{X: 20, Y: 20}, true},
		{"top-left edge is inside", Point{X: 10, Y: 10}, true},
		{"right edge is outside", Point{X: 30, Y: 20}, false},
		{"bottom edge is outside", Point{X: 20, Y: 30}, false},
		{"far outside", Point{X: 100, Y: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.point); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestRectIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{
			name: "overlapping",
			a:    Rect{X: 0, Y: 0, W: 10, H: 10},
			b:    Rect{X: 5, Y: 5, W: 10, H: 10},
			want: true,
		},
		{
			name: "edge adjacent does not intersect",
			a:    Rect{X: 0, Y: 0, W: 10, H: 10},
			b:    Rect{X: 10, Y: 0, W: 10, H: 10},
			want: false,
		},
		{
			name: "disjoint",
			a:    Rect{X: 0, Y: 0, W: 10, H: 10},
			b:    Rect{X: 50, Y: 50, W: 10, H: 10},
			want: false,
		},
		{
			name: "contained",
			a:    Rect{X: 0, Y: 0, W: 100, H: 100},
			b:    Rect{X: 10, Y: 10, W: 5, H: 5},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersects(tt.a); got != tt.want {
				t.Errorf("Intersects() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}

	got := a.Intersect(b)
	want := Rect{X: 5, Y: 5, W: 5, H: 5}
	if got != want {
		t.Errorf("Intersect() = %+v, want %+v", got, want)
	}

	if got := a.Intersect(Rect{X: 50, Y: 50, W: 1, H: 1}); got != (Rect{}) {
		t.Errorf("Intersect() disjoint = %+v, want zero rect", got)
	}
}

func TestRectInset(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
		d    float64
		want Rect
	}{
		{
			name: "normal inset",
			rect: Rect{X: 0, Y: 0, W: 100, H: 100},
			d:    10,
			want: Rect{X: 10, Y: 10, W: 80, H: 80},
		},
		{
			name: "zero inset is identity",
			rect: Rect{X: 5, Y: 5, W: 10, H: 10},
			d:    0,
			want: Rect{X: 5, Y: 5, W: 10, H: 10},
		},
		{
			name: "oversized inset collapses to center",
			rect: Rect{X: 0, Y: 0, W: 10, H: 10},
			d:    20,
			want: Rect{X: 5, Y: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Inset(tt.d); got != tt.want {
				t.Errorf("Inset(%v) = %+v, want %+v", tt.d, got, tt.want)
			}
		})
	}
}

func TestRectNormalize(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
		want Rect
	}{
		{
			name: "valid rect unchanged",
			rect: Rect{X: 1, Y: 2, W: 3, H: 4},
			want: Rect{X: 1, Y: 2, W: 3, H: 4},
		},
		{
			name: "NaN components become zero",
			rect: Rect{X: math.NaN(), Y: 0, W: math.NaN(), H: 10},
			want: Rect{X: 0, Y: 0, W: 0, H: 10},
		},
		{
			name: "infinite width becomes zero",
			rect: Rect{W: math.Inf(1), H: 5},
			want: Rect{W: 0, H: 5},
		},
		{
			name: "negative sizes clamp to zero",
			rect: Rect{W: -10, H: -1},
			want: Rect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectContainsRect(t *testing.T) {
	outer := Rect{X: 0, Y: 0, W: 100, H: 100}

	if !outer.ContainsRect(Rect{X: 10, Y: 10, W: 50, H: 50}) {
		t.Error("ContainsRect() = false for fully contained rect")
	}
	if !outer.ContainsRect(outer) {
		t.Error("ContainsRect() = false for identical rect")
	}
	if outer.ContainsRect(Rect{X: 90, Y: 90, W: 20, H: 20}) {
		t.Error("ContainsRect() = true for overflowing rect")
	}
}
