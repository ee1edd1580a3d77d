package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jkaariainen/circadia/internal/setup"
	"github.com/jkaariainen/circadia/internal/solar"
)

// Control surface names, one MQTT subtopic each
const (
	ControlMaster             = "master"
	ControlBrightness         = "brightness"
	ControlColorTemp          = "color_temp"
	ControlBedtime            = "bedtime"
	ControlTransitionOnTurnOn = "transition_on_turn_on"
	ControlMinBrightness      = "min_brightness"
	ControlMaxBrightness      = "max_brightness"
	ControlMinKelvin          = "min_kelvin"
	ControlMaxKelvin          = "max_kelvin"
	ControlUpdateInterval     = "update_interval"
	ControlTransition         = "transition"
	ControlShapingParam       = "shaping_param"
	ControlShapingFunction    = "shaping_function"
	ControlOverride           = "override"
)

const persistTimeout = 5 * time.Second

// applyControl mutates the setup from a control message, persists the new
// state and decides whether the change warrants an immediate forced pass.
func (r *runner) applyControl(control string, payload []byte) {
	switch control {
	case ControlMaster, ControlBrightness, ControlColorTemp, ControlBedtime, ControlTransitionOnTurnOn:
		r.applyToggle(control, payload)
	case ControlMinBrightness, ControlMaxBrightness, ControlMinKelvin, ControlMaxKelvin,
		ControlUpdateInterval, ControlTransition, ControlShapingParam:
		r.applyNumeric(control, payload)
	case ControlShapingFunction:
		r.applyFunction(payload)
	case ControlOverride:
		r.applyOverride(payload)
	default:
		r.deps.logger.Warn("Unknown control", "setup", r.setup.ID, "control", control)
	}
}

func (r *runner) applyToggle(control string, payload []byte) {
	var msg struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Enabled == nil {
		r.deps.logger.Warn("Invalid toggle payload", "setup", r.setup.ID, "control", control)
		return
	}
	enabled := *msg.Enabled

	r.mu.Lock()
	var force bool
	switch control {
	case ControlMaster:
		r.setup.MasterEnabled = enabled
		// Enabling pushes fresh values right away; disabling leaves lights as-is
		force = enabled
	case ControlBrightness:
		r.setup.BrightnessEnabled = enabled
		force = enabled
	case ControlColorTemp:
		r.setup.ColorTempEnabled = enabled
		force = enabled
	case ControlBedtime:
		r.setup.Bedtime = enabled
		// Both edges reposition the lights
		force = true
	case ControlTransitionOnTurnOn:
		r.setup.TransitionOnTurnOn = enabled
		force = enabled
	}
	r.persistState()
	r.mu.Unlock()

	r.deps.logger.Info("Control toggled", "setup", r.setup.ID, "control", control, "enabled", enabled)
	if force {
		r.request(true)
	}
}

func (r *runner) applyNumeric(control string, payload []byte) {
	var msg struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Value == nil {
		r.deps.logger.Warn("Invalid numeric payload", "setup", r.setup.ID, "control", control)
		return
	}
	v := *msg.Value

	r.mu.Lock()
	s := r.setup
	switch control {
	case ControlMinBrightness:
		s.MinBrightness = clampFloat(v, setup.MinBrightnessPct, s.MaxBrightness)
	case ControlMaxBrightness:
		s.MaxBrightness = clampFloat(v, s.MinBrightness, setup.MaxBrightnessPct)
	case ControlMinKelvin:
		s.MinKelvin = clampFloat(v, setup.MinKelvinLimit, s.MaxKelvin)
	case ControlMaxKelvin:
		s.MaxKelvin = clampFloat(v, s.MinKelvin, setup.MaxKelvinLimit)
	case ControlUpdateInterval:
		s.UpdateIntervalSec = clampFloat(v, setup.MinIntervalSec, setup.MaxIntervalSec)
	case ControlTransition:
		s.TransitionSec = clampFloat(v, setup.MinTransitionSec, setup.MaxTransitionSec)
	case ControlShapingParam:
		if v < solar.MinGamma {
			v = solar.MinGamma
		}
		s.ShapingParam = v
	}
	r.persistState()
	r.mu.Unlock()

	r.deps.logger.Info("Control value set", "setup", r.setup.ID, "control", control, "value", v)
	r.request(true)
}

func (r *runner) applyFunction(payload []byte) {
	var msg struct {
		Function string `json:"function"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.deps.logger.Warn("Invalid shaping function payload", "setup", r.setup.ID)
		return
	}
	fn, ok := solar.ParseFunction(msg.Function)
	if !ok {
		r.deps.logger.Warn("Unknown shaping function", "setup", r.setup.ID, "function", msg.Function)
		return
	}

	r.mu.Lock()
	r.setup.ShapingFunction = fn
	r.persistState()
	r.mu.Unlock()

	r.deps.logger.Info("Shaping function set", "setup", r.setup.ID, "function", fn)
	r.request(true)
}

func (r *runner) applyOverride(payload []byte) {
	var msg struct {
		Light string `json:"light"`
		Clear bool   `json:"clear"`
		setup.LightOverride
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Light == "" {
		r.deps.logger.Warn("Invalid override payload", "setup", r.setup.ID)
		return
	}

	r.mu.Lock()
	s := r.setup
	if !s.HasLight(msg.Light) {
		r.mu.Unlock()
		r.deps.logger.Warn("Override for unknown light", "setup", s.ID, "light", msg.Light)
		return
	}

	o := msg.LightOverride
	if msg.Clear {
		o = setup.LightOverride{}
	}
	clampOverride(&o)

	if o.Empty() {
		delete(s.Overrides, msg.Light)
	} else {
		s.Overrides[msg.Light] = o
	}
	r.persistOverride(msg.Light, o)
	r.mu.Unlock()

	r.deps.logger.Info("Light override set", "setup", s.ID, "light", msg.Light, "cleared", o.Empty())
	r.request(true)
}

// persistState writes the runtime state to the store. Failures are logged
// and otherwise ignored; in-memory state stays authoritative. Caller holds
// the runner lock.
func (r *runner) persistState() {
	if r.deps.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.deps.store.SaveState(ctx, r.setup); err != nil {
		r.deps.logger.Warn("Failed to persist setup state", "setup", r.setup.ID, "error", err)
	}
}

func (r *runner) persistOverride(lightID string, o setup.LightOverride) {
	if r.deps.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.deps.store.SaveOverride(ctx, r.setup.ID, lightID, o); err != nil {
		r.deps.logger.Warn("Failed to persist override", "setup", r.setup.ID, "light", lightID, "error", err)
	}
}

func clampOverride(o *setup.LightOverride) {
	clampPtr := func(p *float64, lo, hi float64) {
		if p != nil {
			*p = clampFloat(*p, lo, hi)
		}
	}
	clampPtr(o.MinBrightness, setup.MinBrightnessPct, setup.MaxBrightnessPct)
	clampPtr(o.MaxBrightness, setup.MinBrightnessPct, setup.MaxBrightnessPct)
	clampPtr(o.MinKelvin, setup.MinKelvinLimit, setup.MaxKelvinLimit)
	clampPtr(o.MaxKelvin, setup.MinKelvinLimit, setup.MaxKelvinLimit)
}
