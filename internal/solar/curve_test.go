package solar

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCurveValueAnchors(t *testing.T) {
	day := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	cycle := buildCycle(day.Add(6*time.Hour), day.Add(18*time.Hour))

	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"midday peak", cycle.Midday, 1.0},
		{"night midpoint trough", cycle.NightMidpoint, 0.0},
		{"sunrise half", cycle.Sunrise, 0.5},
		{"sunset half", cycle.Sunset, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurveValue(tt.at, cycle)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CurveValue(%v) = %f, want %f", tt.at, got, tt.want)
			}
		})
	}
}

func TestCurveValueBounded(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	cycle := buildCycle(day.Add(9*time.Hour), day.Add(15*time.Hour))

	for h := 0; h < 48; h++ {
		at := day.Add(time.Duration(h) * time.Hour)
		v := CurveValue(at, cycle)
		if v < 0 || v > 1 {
			t.Errorf("CurveValue at hour %d = %f, out of [0,1]", h, v)
		}
	}
}

func TestCurveValueSymmetricAroundMidday(t *testing.T) {
	day := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	cycle := buildCycle(day.Add(6*time.Hour), day.Add(18*time.Hour))

	for _, offset := range []time.Duration{time.Hour, 3 * time.Hour, 7 * time.Hour} {
		before := CurveValue(cycle.Midday.Add(-offset), cycle)
		after := CurveValue(cycle.Midday.Add(offset), cycle)
		if math.Abs(before-after) > 1e-9 {
			t.Errorf("offset %v: before=%f after=%f, expected symmetric", offset, before, after)
		}
	}
}

func TestBuildCycleOrdersAnchors(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	cycle := buildCycle(day.Add(7*time.Hour), day.Add(19*time.Hour))

	if !cycle.Sunrise.Before(cycle.Midday) || !cycle.Midday.Before(cycle.Sunset) {
		t.Errorf("expected sunrise < midday < sunset, got %v %v %v",
			cycle.Sunrise, cycle.Midday, cycle.Sunset)
	}
	if !cycle.NightMidpoint.After(cycle.Sunset) {
		t.Errorf("night midpoint %v not after sunset %v", cycle.NightMidpoint, cycle.Sunset)
	}

	wantMidday := day.Add(13 * time.Hour)
	if !cycle.Midday.Equal(wantMidday) {
		t.Errorf("midday = %v, want %v", cycle.Midday, wantMidday)
	}
}

func TestBuildCycleShiftsTomorrowsSunrise(t *testing.T) {
	// Resolved in the evening: next sunrise is tomorrow morning, after next
	// sunset. The cycle must still describe a sunrise-before-sunset day.
	day := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	nextSunrise := day.Add(24*time.Hour + 6*time.Hour)
	sunset := day.Add(18 * time.Hour)

	cycle := buildCycle(nextSunrise, sunset)

	if !cycle.Sunrise.Equal(day.Add(6 * time.Hour)) {
		t.Errorf("sunrise = %v, want %v", cycle.Sunrise, day.Add(6*time.Hour))
	}
	if !cycle.Sunrise.Before(cycle.Sunset) {
		t.Errorf("sunrise %v not before sunset %v", cycle.Sunrise, cycle.Sunset)
	}
}

type fakeSource struct {
	sunrise time.Time
	sunset  time.Time
	err     error
}

func (f *fakeSource) NextEvents(now time.Time) (time.Time, time.Time, error) {
	return f.sunrise, f.sunset, f.err
}

func TestProviderResolve(t *testing.T) {
	day := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{sunrise: day.Add(4 * time.Hour), sunset: day.Add(21 * time.Hour)}
	p := NewProvider(src, testLogger())

	cycle := p.Resolve(day.Add(12 * time.Hour))
	if !cycle.Sunrise.Equal(src.sunrise) || !cycle.Sunset.Equal(src.sunset) {
		t.Errorf("resolved cycle %+v does not match source events", cycle)
	}
}

func TestProviderFallsBackOnError(t *testing.T) {
	now := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{err: errors.New("polar night")}
	p := NewProvider(src, testLogger())

	cycle := p.Resolve(now)

	wantSunrise := time.Date(2025, 12, 24, 6, 0, 0, 0, time.UTC)
	wantSunset := time.Date(2025, 12, 24, 18, 0, 0, 0, time.UTC)
	if !cycle.Sunrise.Equal(wantSunrise) || !cycle.Sunset.Equal(wantSunset) {
		t.Errorf("fallback cycle = %+v, want sunrise %v sunset %v", cycle, wantSunrise, wantSunset)
	}

	// Fallback noon sits exactly on the curve peak
	if v := CurveValue(now, cycle); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("fallback noon curve value = %f, want 1.0", v)
	}
}

func TestProviderNilSourceUsesFallback(t *testing.T) {
	p := NewProvider(nil, testLogger())
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	cycle := p.Resolve(now)
	if v := CurveValue(now.Add(12*time.Hour), cycle); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("fallback midday curve value = %f, want 1.0", v)
	}
	if v := CurveValue(now, cycle); math.Abs(v) > 1e-9 {
		t.Errorf("fallback midnight curve value = %f, want 0.0", v)
	}
}
