package setup

import (
	"time"

	"github.com/jkaariainen/circadia/internal/solar"
)

// Limits enforced on setup configuration
const (
	MinBrightnessPct = 0.0
	MaxBrightnessPct = 100.0
	MinKelvinLimit   = 1500.0
	MaxKelvinLimit   = 6500.0
	MinIntervalSec   = 10.0
	MaxIntervalSec   = 3600.0
	MinTransitionSec = 0.0
	MaxTransitionSec = 600.0
)

// Defaults applied when the setups file omits a value
const (
	DefaultMinKelvin   = 2500.0
	DefaultMaxKelvin   = 5000.0
	DefaultIntervalSec = 60.0
	DefaultTransition  = 0.0
)

// Config is the immutable part of a setup, loaded from the setups file
type Config struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Lights            []string `yaml:"lights"`
	MinBrightness     float64  `yaml:"min_brightness"`
	MaxBrightness     float64  `yaml:"max_brightness"`
	MinKelvin         float64  `yaml:"min_kelvin"`
	MaxKelvin         float64  `yaml:"max_kelvin"`
	UpdateIntervalSec float64  `yaml:"update_interval"`
	TransitionSec     float64  `yaml:"transition"`
}

// LightOverride overrides any of the setup's global limits for one light.
// A nil field means "inherit the setup's global value".
type LightOverride struct {
	MinBrightness *float64 `json:"min_brightness,omitempty"`
	MaxBrightness *float64 `json:"max_brightness,omitempty"`
	MinKelvin     *float64 `json:"min_kelvin,omitempty"`
	MaxKelvin     *float64 `json:"max_kelvin,omitempty"`
}

// Empty reports whether the override carries no values
func (o LightOverride) Empty() bool {
	return o.MinBrightness == nil && o.MaxBrightness == nil && o.MinKelvin == nil && o.MaxKelvin == nil
}

// Setup is one configured light group with its mutable runtime state. A Setup
// is exclusively owned by its orchestration runner; all mutation goes through
// the runner's single entry point.
type Setup struct {
	Config

	// Runtime flags
	MasterEnabled      bool
	BrightnessEnabled  bool
	ColorTempEnabled   bool
	Bedtime            bool
	TransitionOnTurnOn bool

	// Shaping selection
	ShapingFunction solar.Function
	ShapingParam    float64

	// Zero value means no pass has completed yet
	LastUpdate time.Time

	// Per-light overrides keyed by light id
	Overrides map[string]LightOverride
}

// New creates a Setup from its configuration, normalizing limits and seeding
// the runtime defaults (everything enabled, bedtime off, baseline shaping).
func New(cfg Config) *Setup {
	cfg.Lights = dedupe(cfg.Lights)

	if cfg.MaxBrightness == 0 {
		cfg.MaxBrightness = MaxBrightnessPct
	}
	if cfg.MinKelvin == 0 {
		cfg.MinKelvin = DefaultMinKelvin
	}
	if cfg.MaxKelvin == 0 {
		cfg.MaxKelvin = DefaultMaxKelvin
	}
	if cfg.UpdateIntervalSec == 0 {
		cfg.UpdateIntervalSec = DefaultIntervalSec
	}

	cfg.MinBrightness = clampRange(cfg.MinBrightness, MinBrightnessPct, MaxBrightnessPct)
	cfg.MaxBrightness = clampRange(cfg.MaxBrightness, cfg.MinBrightness, MaxBrightnessPct)
	cfg.MinKelvin = clampRange(cfg.MinKelvin, MinKelvinLimit, MaxKelvinLimit)
	cfg.MaxKelvin = clampRange(cfg.MaxKelvin, cfg.MinKelvin, MaxKelvinLimit)
	cfg.UpdateIntervalSec = clampRange(cfg.UpdateIntervalSec, MinIntervalSec, MaxIntervalSec)
	cfg.TransitionSec = clampRange(cfg.TransitionSec, MinTransitionSec, MaxTransitionSec)

	return &Setup{
		Config:             cfg,
		MasterEnabled:      true,
		BrightnessEnabled:  true,
		ColorTempEnabled:   true,
		Bedtime:            false,
		TransitionOnTurnOn: true,
		ShapingFunction:    solar.DefaultFunction,
		ShapingParam:       solar.DefaultGamma,
		Overrides:          make(map[string]LightOverride),
	}
}

// EffectiveBrightnessRange resolves the min/max brightness for one light:
// per-light override first, setup global otherwise.
func (s *Setup) EffectiveBrightnessRange(lightID string) (min, max float64) {
	min, max = s.MinBrightness, s.MaxBrightness
	if o, ok := s.Overrides[lightID]; ok {
		if o.MinBrightness != nil {
			min = *o.MinBrightness
		}
		if o.MaxBrightness != nil {
			max = *o.MaxBrightness
		}
	}
	return min, max
}

// EffectiveKelvinRange resolves the min/max color temperature for one light
func (s *Setup) EffectiveKelvinRange(lightID string) (min, max float64) {
	min, max = s.MinKelvin, s.MaxKelvin
	if o, ok := s.Overrides[lightID]; ok {
		if o.MinKelvin != nil {
			min = *o.MinKelvin
		}
		if o.MaxKelvin != nil {
			max = *o.MaxKelvin
		}
	}
	return min, max
}

// HasLight reports whether the setup controls the given light
func (s *Setup) HasLight(lightID string) bool {
	for _, id := range s.Lights {
		if id == lightID {
			return true
		}
	}
	return false
}

// UpdateInterval returns the throttle interval as a duration
func (s *Setup) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalSec * float64(time.Second))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
