package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkaariainen/circadia/internal/history"
	"github.com/jkaariainen/circadia/internal/lights"
	"github.com/jkaariainen/circadia/internal/setup"
	"github.com/jkaariainen/circadia/internal/solar"
)

// evaluation is one tick's curve result, shared by every light in the pass
type evaluation struct {
	cycle  solar.Cycle
	raw    float64
	shaped float64
}

// runnerDeps are the collaborators a runner needs. store, recorder and
// publish may be nil (tests, history disabled).
type runnerDeps struct {
	provider        *solar.Provider
	gateway         lights.Gateway
	store           *setup.Store
	recorder        *history.Recorder
	publish         func(setupID string, payload []byte)
	clock           func() time.Time
	dispatchTimeout time.Duration
	logger          *slog.Logger
}

// runner owns one Setup. All passes and control mutations are serialized by
// mu, so a tick and a concurrently arriving forced trigger never interleave.
// Pending triggers coalesce into at most one queued pass.
type runner struct {
	setup *setup.Setup
	deps  runnerDeps

	mu sync.Mutex // run-exclusion lock for passes and mutations

	pending   chan struct{} // capacity 1
	pendMu    sync.Mutex
	pendForce bool

	lastEval *evaluation // retained across failed evaluations
}

func newRunner(s *setup.Setup, deps runnerDeps) *runner {
	return &runner{
		setup:   s,
		deps:    deps,
		pending: make(chan struct{}, 1),
	}
}

// request queues an orchestration pass. Bursts collapse into a single
// pending pass; a force request is sticky until the pass runs.
func (r *runner) request(force bool) {
	r.pendMu.Lock()
	r.pendForce = r.pendForce || force
	r.pendMu.Unlock()

	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// loop is the runner's single consumer goroutine
func (r *runner) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pending:
			r.pendMu.Lock()
			force := r.pendForce
			r.pendForce = false
			r.pendMu.Unlock()

			r.runPass(ctx, force)
		}
	}
}

// turnOnEdge handles an off->on edge for one of the setup's lights
func (r *runner) turnOnEdge(lightID string) {
	r.mu.Lock()
	honor := r.setup.TransitionOnTurnOn
	r.mu.Unlock()

	if !honor {
		return
	}

	r.deps.logger.Debug("Light turned on, forcing pass", "setup", r.setup.ID, "light", lightID)
	r.request(true)
}

// runPass executes the decision sequence for one trigger
func (r *runner) runPass(ctx context.Context, force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.deps.logger.Error("Orchestration pass panicked", "setup", r.setup.ID, "panic", p)
		}
	}()

	s := r.setup
	now := r.deps.clock()
	passID := uuid.New().String()

	// Forced passes always notify observers, even when nothing is pushed
	var eval *evaluation
	if force {
		eval = r.evaluate(now)
		r.notify(passID, now, eval, force)
	}

	// Master off: no light is touched
	if !s.MasterEnabled {
		r.deps.logger.Debug("Setup disabled, skipping pass", "setup", s.ID)
		return
	}

	if len(s.Lights) == 0 {
		return
	}

	// Throttle non-forced passes
	if !force && !s.LastUpdate.IsZero() {
		elapsed := now.Sub(s.LastUpdate)
		if elapsed < s.UpdateInterval() {
			r.deps.logger.Debug("Throttled, skipping pass",
				"setup", s.ID,
				"elapsed_sec", elapsed.Seconds(),
				"interval_sec", s.UpdateIntervalSec)
			return
		}
	}

	// One evaluation per pass; every light sees the same shaped value
	if eval == nil {
		eval = r.evaluate(now)
	}

	commanded := 0
	for _, lightID := range s.Lights {
		if r.processLight(ctx, lightID, eval.shaped) {
			commanded++
		}
	}

	s.LastUpdate = now

	if !force {
		r.notify(passID, now, eval, force)
	}

	r.recordPass(ctx, passID, now, force, eval, commanded)

	r.deps.logger.Info("Orchestration pass complete",
		"setup", s.ID,
		"pass_id", passID,
		"forced", force,
		"raw_pct", round2(eval.raw),
		"shaped_pct", round2(eval.shaped),
		"lights_commanded", commanded)
}

// evaluate computes the shared curve value for this instant. On an
// unexpected failure the previous evaluation is retained so the setup keeps
// producing a value.
func (r *runner) evaluate(now time.Time) *evaluation {
	eval, err := func() (ev *evaluation, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("curve evaluation panicked: %v", p)
			}
		}()

		cycle := r.deps.provider.Resolve(now)
		raw := solar.CurveValue(now, cycle)
		shaped := solar.Shape(raw, r.setup.ShapingFunction, r.setup.ShapingParam)
		return &evaluation{cycle: cycle, raw: raw, shaped: shaped}, nil
	}()

	if err != nil {
		r.deps.logger.Error("Curve evaluation failed", "setup", r.setup.ID, "error", err)
		if r.lastEval != nil {
			return r.lastEval
		}
		return &evaluation{}
	}

	r.lastEval = eval
	return eval
}

// processLight resolves effective limits and dispatches a command for one
// light. Returns true when a command was dispatched.
func (r *runner) processLight(ctx context.Context, lightID string, shaped float64) bool {
	s := r.setup

	// Never turn a light on: only lights already reporting "on" are adjusted
	state := r.deps.gateway.PowerState(lightID)
	if state != lights.PowerOn {
		r.deps.logger.Debug("Light not on, skipping", "setup", s.ID, "light", lightID, "state", state)
		return false
	}

	var cmd lights.Command

	if s.BrightnessEnabled {
		minB, maxB := s.EffectiveBrightnessRange(lightID)
		var pct float64
		if s.Bedtime {
			pct = minB
		} else {
			pct = solar.MapToRange(shaped, minB, maxB)
		}
		v := int(math.Round(clampFloat(pct, 0, 100)))
		cmd.BrightnessPct = &v
	}

	if s.ColorTempEnabled {
		minK, maxK := s.EffectiveKelvinRange(lightID)
		var kelvin float64
		if s.Bedtime {
			kelvin = minK
		} else {
			kelvin = solar.MapToRange(shaped, minK, maxK)
		}
		if kelvin > 0 {
			mired := int(math.Round(1_000_000 / kelvin))
			cmd.ColorTempMired = &mired
		}
	}

	// No brightness and no color temperature: nothing worth dispatching
	if cmd.Empty() {
		return false
	}

	if s.TransitionSec > 0 {
		t := s.TransitionSec
		cmd.TransitionSeconds = &t
	}

	// Fire and forget: a slow or failing light must not block its siblings
	dispatchCtx, cancel := context.WithTimeout(ctx, r.deps.dispatchTimeout)
	go func() {
		defer cancel()
		if err := r.deps.gateway.SetLight(dispatchCtx, lightID, cmd); err != nil {
			r.deps.logger.Error("Failed to dispatch light command",
				"setup", s.ID,
				"light", lightID,
				"command", cmd.String(),
				"error", err)
		}
	}()

	return true
}

// recordPass writes the optional audit row; failures never affect the pass
func (r *runner) recordPass(ctx context.Context, passID string, now time.Time, force bool, eval *evaluation, commanded int) {
	if r.deps.recorder == nil {
		return
	}

	rec := history.PassRecord{
		PassID:          passID,
		SetupID:         r.setup.ID,
		At:              now,
		Forced:          force,
		RawPct:          eval.raw,
		ShapedPct:       eval.shaped,
		LightsCommanded: commanded,
	}
	if r.setup.BrightnessEnabled {
		b := round2(solar.MapToRange(eval.shaped, r.setup.MinBrightness, r.setup.MaxBrightness))
		rec.BrightnessPct = &b
	}
	if r.setup.ColorTempEnabled {
		k := round2(solar.MapToRange(eval.shaped, r.setup.MinKelvin, r.setup.MaxKelvin))
		rec.Kelvin = &k
	}

	recordCtx, cancel := context.WithTimeout(ctx, r.deps.dispatchTimeout)
	defer cancel()

	if err := r.deps.recorder.Record(recordCtx, rec); err != nil {
		r.deps.logger.Warn("Failed to record pass", "setup", r.setup.ID, "error", err)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
