package solar

import (
	"math"
	"testing"
)

func TestShapeStaysInUnitRange(t *testing.T) {
	gammas := []float64{0.01, 0.1, 0.5, 1.0, 2.2, 5.0, 10.0}

	for _, fn := range Functions() {
		for _, g := range gammas {
			for x := 0.0; x <= 1.0; x += 0.05 {
				v := Shape(x, fn, g)
				if v < 0 || v > 1 {
					t.Errorf("Shape(%f, %s, %f) = %f, out of [0,1]", x, fn, g, v)
				}
			}
		}
	}
}

func TestShapeGammaSineIdentityAtGammaOne(t *testing.T) {
	for x := 0.0; x <= 1.0; x += 0.1 {
		if v := Shape(x, FuncGammaSine, 1.0); math.Abs(v-x) > 1e-9 {
			t.Errorf("Shape(%f, gamma_sine, 1.0) = %f, want identity", x, v)
		}
	}
}

func TestShapeGammaSineCurvature(t *testing.T) {
	// gamma > 1 darkens mid-values, gamma < 1 brightens them
	mid := 0.5
	if v := Shape(mid, FuncGammaSine, 2.0); v >= mid {
		t.Errorf("gamma 2.0 at 0.5 = %f, expected below 0.5", v)
	}
	if v := Shape(mid, FuncGammaSine, 0.5); v <= mid {
		t.Errorf("gamma 0.5 at 0.5 = %f, expected above 0.5", v)
	}
}

func TestShapeTriangularPeaksAtHalf(t *testing.T) {
	if v := Shape(0.5, FuncTriangular, 1.0); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("triangular(0.5) = %f, want 1.0", v)
	}
	if v := Shape(0.0, FuncTriangular, 1.0); math.Abs(v) > 1e-9 {
		t.Errorf("triangular(0.0) = %f, want 0.0", v)
	}
	if v := Shape(1.0, FuncTriangular, 1.0); math.Abs(v) > 1e-9 {
		t.Errorf("triangular(1.0) = %f, want 0.0", v)
	}
}

func TestShapeEasedTriangularSmoothsEdges(t *testing.T) {
	// Smoothstep keeps the peak but flattens the approach near the edges
	if v := Shape(0.5, FuncEasedTriangular, 1.0); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("eased_triangular(0.5) = %f, want 1.0", v)
	}

	tri := Shape(0.1, FuncTriangular, 1.0)
	eased := Shape(0.1, FuncEasedTriangular, 1.0)
	if eased >= tri {
		t.Errorf("eased edge value %f not below triangular %f", eased, tri)
	}
}

func TestShapeClampsGamma(t *testing.T) {
	// Degenerate gammas collapse to MinGamma instead of exploding
	a := Shape(0.5, FuncGammaSine, 0)
	b := Shape(0.5, FuncGammaSine, -10)
	c := Shape(0.5, FuncGammaSine, MinGamma)

	if a != c || b != c {
		t.Errorf("gamma clamp mismatch: Shape(0)=%f Shape(-10)=%f Shape(min)=%f", a, b, c)
	}
}

func TestShapeUnknownFunctionPassesThrough(t *testing.T) {
	for x := 0.0; x <= 1.0; x += 0.25 {
		if v := Shape(x, Function("bogus"), 3.0); math.Abs(v-x) > 1e-9 {
			t.Errorf("unknown function at %f = %f, want passthrough", x, v)
		}
	}
}

func TestShapeClampsInput(t *testing.T) {
	if v := Shape(-0.5, FuncGammaSine, 1.0); v != 0 {
		t.Errorf("Shape(-0.5) = %f, want 0", v)
	}
	if v := Shape(1.5, FuncGammaSine, 1.0); v != 1 {
		t.Errorf("Shape(1.5) = %f, want 1", v)
	}
}

func TestParseFunction(t *testing.T) {
	for _, fn := range Functions() {
		got, ok := ParseFunction(string(fn))
		if !ok || got != fn {
			t.Errorf("ParseFunction(%q) = %q, %v", fn, got, ok)
		}
	}

	if _, ok := ParseFunction("half_sine"); ok {
		t.Error("ParseFunction accepted unknown id")
	}
	if _, ok := ParseFunction(""); ok {
		t.Error("ParseFunction accepted empty id")
	}
}

func TestMapToRange(t *testing.T) {
	tests := []struct {
		pct        float64
		vmin, vmax float64
		want       float64
	}{
		{0.0, 10, 100, 10},
		{1.0, 10, 100, 100},
		{0.5, 10, 100, 55},
		{1.0, 2500, 5000, 5000},
		{0.0, 2500, 5000, 2500},
		{-0.5, 10, 100, 10},  // clamped input
		{1.5, 10, 100, 100},  // clamped input
		{0.5, 100, 10, 55},   // inverted range interpolates downward
	}

	for _, tt := range tests {
		got := MapToRange(tt.pct, tt.vmin, tt.vmax)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("MapToRange(%f, %f, %f) = %f, want %f", tt.pct, tt.vmin, tt.vmax, got, tt.want)
		}
	}
}
