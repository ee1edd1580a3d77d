package solar

import "math"

// Function identifies a curve shaping function
type Function string

const (
	FuncGammaSine       Function = "gamma_sine"
	FuncTimeWarpedSine  Function = "time_warped_sine"
	FuncTriangular      Function = "triangular"
	FuncEasedTriangular Function = "eased_triangular"
)

// DefaultFunction with DefaultGamma reproduces the unshaped curve
const (
	DefaultFunction = FuncGammaSine
	DefaultGamma    = 1.0
)

// MinGamma guards the exponent against degenerate values
const MinGamma = 0.01

// Functions returns all selectable shaping functions
func Functions() []Function {
	return []Function{FuncGammaSine, FuncTimeWarpedSine, FuncTriangular, FuncEasedTriangular}
}

// ParseFunction validates a function id. Unknown ids are rejected so callers
// can keep their previous selection.
func ParseFunction(s string) (Function, bool) {
	switch Function(s) {
	case FuncGammaSine, FuncTimeWarpedSine, FuncTriangular, FuncEasedTriangular:
		return Function(s), true
	}
	return "", false
}

// Shape maps a raw curve value in [0,1] through the selected shaping function.
// gamma is clamped to MinGamma; an unknown function id passes the clamped
// input through unchanged. The result is always in [0,1].
func Shape(x float64, fn Function, gamma float64) float64 {
	t := clamp01(x)
	g := gamma
	if g < MinGamma {
		g = MinGamma
	}

	switch fn {
	case FuncGammaSine:
		return clamp01(math.Pow(t, g))

	case FuncTimeWarpedSine:
		return clamp01(math.Sin(math.Pi * math.Pow(t, g)))

	case FuncTriangular:
		tri := clamp01(1 - math.Abs(2*t-1))
		if math.Abs(g-1) > 1e-6 {
			tri = clamp01(math.Pow(tri, g))
		}
		return tri

	case FuncEasedTriangular:
		tri := clamp01(1 - math.Abs(2*t-1))
		eased := tri * tri * (3 - 2*tri)
		if math.Abs(g-1) > 1e-6 {
			eased = clamp01(math.Pow(eased, g))
		}
		return clamp01(eased)
	}

	return t
}

// MapToRange linearly interpolates a normalized value into [vmin, vmax].
// The input is clamped to [0,1]; the output is not re-clamped, callers clamp
// again where physical units demand it.
func MapToRange(pct, vmin, vmax float64) float64 {
	return vmin + (vmax-vmin)*clamp01(pct)
}

func clamp01(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x
}
