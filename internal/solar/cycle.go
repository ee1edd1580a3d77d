package solar

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Cycle holds the four anchor instants derived for "today".
// Sunrise < Midday < Sunset; NightMidpoint falls between sunset and the
// following day's sunrise.
type Cycle struct {
	Sunrise       time.Time
	Sunset        time.Time
	Midday        time.Time
	NightMidpoint time.Time
}

// EventSource exposes the next sunrise and next sunset for the observer's
// location. An error or zero instants trigger the fixed fallback schedule.
type EventSource interface {
	NextEvents(now time.Time) (sunrise, sunset time.Time, err error)
}

// SunCalcSource implements EventSource from geographic coordinates
type SunCalcSource struct {
	latitude  float64
	longitude float64
}

// NewSunCalcSource creates an event source for the given coordinates
func NewSunCalcSource(latitude, longitude float64) *SunCalcSource {
	return &SunCalcSource{latitude: latitude, longitude: longitude}
}

// NextEvents returns the next sunrise and next sunset after now
func (s *SunCalcSource) NextEvents(now time.Time) (time.Time, time.Time, error) {
	sunrise := s.nextEvent(now, suncalc.Sunrise)
	sunset := s.nextEvent(now, suncalc.Sunset)

	if sunrise.IsZero() || sunset.IsZero() {
		// Polar day/night: suncalc yields no crossing for this date
		return time.Time{}, time.Time{}, fmt.Errorf("no sun events for lat=%.4f lon=%.4f", s.latitude, s.longitude)
	}

	return sunrise, sunset, nil
}

func (s *SunCalcSource) nextEvent(now time.Time, name suncalc.DayTimeName) time.Time {
	today := suncalc.GetTimes(now, s.latitude, s.longitude)
	event := today[name].Value
	if !event.IsZero() && event.After(now) {
		return event.In(now.Location())
	}

	tomorrow := suncalc.GetTimes(now.Add(24*time.Hour), s.latitude, s.longitude)
	event = tomorrow[name].Value
	if event.IsZero() {
		return time.Time{}
	}
	return event.In(now.Location())
}

// Provider resolves a Cycle from an EventSource. Resolve never fails: a
// missing or degenerate source falls back to a fixed 06:00/18:00 schedule.
type Provider struct {
	source EventSource
	logger *slog.Logger
}

// NewProvider creates a cycle provider. source may be nil, which forces the
// fallback schedule on every resolution.
func NewProvider(source EventSource, logger *slog.Logger) *Provider {
	return &Provider{source: source, logger: logger}
}

// Resolve derives today's solar cycle for the given instant
func (p *Provider) Resolve(now time.Time) Cycle {
	if p.source != nil {
		sunrise, sunset, err := p.source.NextEvents(now)
		if err == nil {
			return buildCycle(sunrise, sunset)
		}
		p.logger.Debug("Solar events unavailable, using fallback schedule", "error", err)
	}
	return fallbackCycle(now)
}

// buildCycle derives the four anchors from the next sunrise/sunset pair.
// A sunrise after the sunset belongs to tomorrow, so it is shifted back a day
// to keep "this" sunrise before "this" sunset.
func buildCycle(sunrise, sunset time.Time) Cycle {
	if sunrise.After(sunset) {
		sunrise = sunrise.Add(-24 * time.Hour)
	}

	midday := sunrise.Add(sunset.Sub(sunrise) / 2)
	nextSunrise := sunrise.Add(24 * time.Hour)
	nightMidpoint := sunset.Add(nextSunrise.Sub(sunset) / 2)

	return Cycle{
		Sunrise:       sunrise,
		Sunset:        sunset,
		Midday:        midday,
		NightMidpoint: nightMidpoint,
	}
}

// fallbackCycle returns the fixed schedule: sunrise at local 06:00, sunset at
// local 18:00 of the day containing now.
func fallbackCycle(now time.Time) Cycle {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return buildCycle(day.Add(6*time.Hour), day.Add(18*time.Hour))
}
