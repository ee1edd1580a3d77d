package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/jkaariainen/circadia/internal/solar"
)

// TargetsNotification is published to observers after every completed pass
// and immediately on any forced trigger. Brightness and kelvin carry the
// setup-global targets and are omitted when the corresponding channel is
// disabled or the setup master is off.
type TargetsNotification struct {
	PassID   string  `json:"pass_id"`
	SetupID  string  `json:"setup_id"`
	At       string  `json:"at"`
	Forced   bool    `json:"forced"`
	RawPct   float64 `json:"raw_pct"`
	ShapedPct float64 `json:"shaped_pct"`

	BrightnessPct *float64 `json:"brightness_pct,omitempty"`
	Kelvin        *float64 `json:"kelvin,omitempty"`

	Sunrise       string `json:"sunrise"`
	Sunset        string `json:"sunset"`
	Midday        string `json:"midday"`
	NightMidpoint string `json:"night_midpoint"`
}

// notify publishes the pass result to the setup's observer topic. Caller
// holds the runner lock.
func (r *runner) notify(passID string, now time.Time, eval *evaluation, force bool) {
	if r.deps.publish == nil {
		return
	}

	s := r.setup
	n := TargetsNotification{
		PassID:        passID,
		SetupID:       s.ID,
		At:            now.Format(time.RFC3339),
		Forced:        force,
		RawPct:        round2(eval.raw * 100),
		ShapedPct:     round2(eval.shaped * 100),
		Sunrise:       eval.cycle.Sunrise.Format(time.RFC3339),
		Sunset:        eval.cycle.Sunset.Format(time.RFC3339),
		Midday:        eval.cycle.Midday.Format(time.RFC3339),
		NightMidpoint: eval.cycle.NightMidpoint.Format(time.RFC3339),
	}

	if s.MasterEnabled && s.BrightnessEnabled {
		b := round2(solar.MapToRange(eval.shaped, s.MinBrightness, s.MaxBrightness))
		n.BrightnessPct = &b
	}
	if s.MasterEnabled && s.ColorTempEnabled {
		k := round2(solar.MapToRange(eval.shaped, s.MinKelvin, s.MaxKelvin))
		n.Kelvin = &k
	}

	payload, err := json.Marshal(n)
	if err != nil {
		r.deps.logger.Warn("Failed to marshal targets notification", "setup", s.ID, "error", err)
		return
	}

	r.deps.publish(s.ID, payload)
}
