package layout

import (
	"math"
	"testing"
)

func TestClampZoom(t *testing.T) {
	tests := []struct {
		name string
		zoom float64
		want float64
	}{
		{"in range", 2.5, 2.5},
		{"below minimum", 0.2, MinZoom},
		{"above maximum", 9.0, MaxZoom},
		{"negative", -3, MinZoom},
		{"NaN", math.NaN(), MinZoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampZoom(tt.zoom); got != tt.want {
				t.Errorf("ClampZoom(%v) = %v, want %v", tt.zoom, got, tt.want)
			}
		})
	}
}

func TestResolveTierBands(t *testing.T) {
	tests := []struct {
		zoom float64
		want Tier
	}{
		{1.0, TierOverview},
		{1.5, TierOverview},
		{1.75, TierLabeled},
		{2.0, TierLabeled},
		{2.5, TierPreview},
		{3.0, TierPreview},
		{3.25, TierFull},
		{4.0, TierFull},
	}

	for _, tt := range tests {
		if got := Resolve(tt.zoom, 800*600, DefaultMaxDepth).Tier; got != tt.want {
			t.Errorf("Resolve(%v).Tier = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestResolveStrategyBands(t *testing.T) {
	tests := []struct {
		zoom float64
		want Kind
	}{
		{1.0, KindGrid},
		{1.9, KindGrid},
		{2.0, KindTreemap},
		{2.9, KindTreemap},
		{3.0, KindDetailed},
		{4.0, KindDetailed},
	}

	for _, tt := range tests {
		if got := Resolve(tt.zoom, 800*600, DefaultMaxDepth).Strategy; got != tt.want {
			t.Errorf("Resolve(%v).Strategy = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestResolveDepthLimits(t *testing.T) {
	area := 800.0 * 600.0

	if got := Resolve(MinZoom, area, DefaultMaxDepth).DepthLimit; got != 1 {
		t.Errorf("depth at min zoom = %d, want 1", got)
	}
	if got := Resolve(MaxZoom, area, DefaultMaxDepth).DepthLimit; got != DefaultMaxDepth {
		t.Errorf("depth at max zoom = %d, want %d", got, DefaultMaxDepth)
	}
}

// Increasing zoom must never decrease the depth limit or the tier
// for a fixed viewport.
func TestResolveMonotonic(t *testing.T) {
	for _, area := range []float64{0, 320 * 200, 800 * 600, 2560 * 1440} {
		prev := Resolve(MinZoom, area, DefaultMaxDepth)
		for z := MinZoom; z <= MaxZoom; z += 0.05 {
			cur := Resolve(z, area, DefaultMaxDepth)
			if cur.DepthLimit < prev.DepthLimit {
				t.Fatalf("area %v zoom %v: depth %d < previous %d", area, z, cur.DepthLimit, prev.DepthLimit)
			}
			if cur.Tier < prev.Tier {
				t.Fatalf("area %v zoom %v: tier %v < previous %v", area, z, cur.Tier, prev.Tier)
			}
			prev = cur
		}
	}
}

func TestResolveLargeViewportBonus(t *testing.T) {
	small := Resolve(2.0, 800*600, DefaultMaxDepth)
	large := Resolve(2.0, 2560*1440, DefaultMaxDepth)

	if large.DepthLimit != small.DepthLimit+1 {
		t.Errorf("large viewport depth = %d, want %d", large.DepthLimit, small.DepthLimit+1)
	}
}

func TestResolveDepthCap(t *testing.T) {
	if got := Resolve(MaxZoom, 4096*4096, 100).DepthLimit; got > DepthCap {
		t.Errorf("depth = %d exceeds cap %d", got, DepthCap)
	}
}

// Resolve must be a pure function: identical inputs, identical outputs.
func TestResolveDeterministic(t *testing.T) {
	a := Resolve(2.7, 1024*768, DefaultMaxDepth)
	b := Resolve(2.7, 1024*768, DefaultMaxDepth)
	if a != b {
		t.Errorf("Resolve() not deterministic: %+v vs %+v", a, b)
	}
}

func TestZoomBucket(t *testing.T) {
	// Nearby zoom values quantize to the same bucket so continuous
	// gestures stay cache-friendly.
	a := Resolve(2.49, 800*600, DefaultMaxDepth)
	b := Resolve(2.51, 800*600, DefaultMaxDepth)
	if a.ZoomBucket != b.ZoomBucket {
		t.Errorf("buckets differ: %d vs %d", a.ZoomBucket, b.ZoomBucket)
	}

	far := Resolve(3.5, 800*600, DefaultMaxDepth)
	if a.ZoomBucket == far.ZoomBucket {
		t.Error("distant zooms share a bucket")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"auto", KindAuto, false},
		{"grid", KindGrid, false},
		{"treemap", KindTreemap, false},
		{"force", KindForce, false},
		{"detailed", KindDetailed, false},
		{"mosaic", KindAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
