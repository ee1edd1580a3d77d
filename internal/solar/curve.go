package solar

import (
	"math"
	"time"
)

const secondsPerDay = 24 * 3600.0

// CurveValue converts an instant and a solar cycle into the raw day-curve
// value in [0,1]: 1.0 at midday, 0.0 at the night midpoint, roughly 0.5 at
// sunrise and sunset. The curve is a cosine of the time since midday, clamped
// to absorb floating-point drift.
func CurveValue(now time.Time, cycle Cycle) float64 {
	secondsSinceMidday := now.Sub(cycle.Midday).Seconds()
	theta := secondsSinceMidday / secondsPerDay * 2 * math.Pi
	return clamp01(0.5 * (1 + math.Cos(theta)))
}
