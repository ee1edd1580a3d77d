package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jkaariainen/circadia/internal/solar"
	"github.com/jkaariainen/circadia/pkg/redis"
)

// Hash fields persisted per setup
const (
	fieldMasterEnabled      = "master_enabled"
	fieldBrightnessEnabled  = "brightness_enabled"
	fieldColorTempEnabled   = "color_temp_enabled"
	fieldBedtime            = "bedtime"
	fieldTransitionOnTurnOn = "transition_on_turn_on"
	fieldShapingFunction    = "shaping_function"
	fieldShapingParam       = "shaping_param"
	fieldMinBrightness      = "min_brightness"
	fieldMaxBrightness      = "max_brightness"
	fieldMinKelvin          = "min_kelvin"
	fieldMaxKelvin          = "max_kelvin"
	fieldUpdateInterval     = "update_interval"
	fieldTransition         = "transition"
)

// Store persists setup runtime state and per-light overrides so they survive
// process restarts. Stored values that fail to parse are skipped, leaving the
// in-memory default in place.
type Store struct {
	redis  redis.Client
	logger *slog.Logger
}

// NewStore creates a settings store backed by Redis
func NewStore(redisClient redis.Client, logger *slog.Logger) *Store {
	return &Store{redis: redisClient, logger: logger}
}

// SaveState persists the setup's runtime flags, shaping selection, and
// editable numeric settings.
func (st *Store) SaveState(ctx context.Context, s *Setup) error {
	key := redis.SetupStateKey(s.ID)

	fields := map[string]string{
		fieldMasterEnabled:      strconv.FormatBool(s.MasterEnabled),
		fieldBrightnessEnabled:  strconv.FormatBool(s.BrightnessEnabled),
		fieldColorTempEnabled:   strconv.FormatBool(s.ColorTempEnabled),
		fieldBedtime:            strconv.FormatBool(s.Bedtime),
		fieldTransitionOnTurnOn: strconv.FormatBool(s.TransitionOnTurnOn),
		fieldShapingFunction:    string(s.ShapingFunction),
		fieldShapingParam:       strconv.FormatFloat(s.ShapingParam, 'f', -1, 64),
		fieldMinBrightness:      strconv.FormatFloat(s.MinBrightness, 'f', -1, 64),
		fieldMaxBrightness:      strconv.FormatFloat(s.MaxBrightness, 'f', -1, 64),
		fieldMinKelvin:          strconv.FormatFloat(s.MinKelvin, 'f', -1, 64),
		fieldMaxKelvin:          strconv.FormatFloat(s.MaxKelvin, 'f', -1, 64),
		fieldUpdateInterval:     strconv.FormatFloat(s.UpdateIntervalSec, 'f', -1, 64),
		fieldTransition:         strconv.FormatFloat(s.TransitionSec, 'f', -1, 64),
	}

	for field, value := range fields {
		if err := st.redis.HSet(ctx, key, field, value); err != nil {
			return fmt.Errorf("failed to persist setup %s state: %w", s.ID, err)
		}
	}

	return nil
}

// LoadState re-seeds the setup's runtime state from the store. Missing keys
// and unparsable values leave the corresponding default untouched.
func (st *Store) LoadState(ctx context.Context, s *Setup) {
	stored, err := st.redis.HGetAll(ctx, redis.SetupStateKey(s.ID))
	if err != nil || len(stored) == 0 {
		return
	}

	applyBool(stored, fieldMasterEnabled, &s.MasterEnabled)
	applyBool(stored, fieldBrightnessEnabled, &s.BrightnessEnabled)
	applyBool(stored, fieldColorTempEnabled, &s.ColorTempEnabled)
	applyBool(stored, fieldBedtime, &s.Bedtime)
	applyBool(stored, fieldTransitionOnTurnOn, &s.TransitionOnTurnOn)

	if v, ok := stored[fieldShapingFunction]; ok {
		if fn, valid := solar.ParseFunction(v); valid {
			s.ShapingFunction = fn
		} else {
			st.logger.Warn("Ignoring stored shaping function", "setup", s.ID, "value", v)
		}
	}
	if v, ok := stored[fieldShapingParam]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			s.ShapingParam = f
		}
	}

	applyFloat(stored, fieldMinBrightness, &s.MinBrightness, MinBrightnessPct, MaxBrightnessPct)
	applyFloat(stored, fieldMaxBrightness, &s.MaxBrightness, MinBrightnessPct, MaxBrightnessPct)
	applyFloat(stored, fieldMinKelvin, &s.MinKelvin, MinKelvinLimit, MaxKelvinLimit)
	applyFloat(stored, fieldMaxKelvin, &s.MaxKelvin, MinKelvinLimit, MaxKelvinLimit)
	applyFloat(stored, fieldUpdateInterval, &s.UpdateIntervalSec, MinIntervalSec, MaxIntervalSec)
	applyFloat(stored, fieldTransition, &s.TransitionSec, MinTransitionSec, MaxTransitionSec)

	st.logger.Debug("Restored setup state", "setup", s.ID, "fields", len(stored))
}

// SaveOverride persists one light's override. An empty override clears the
// stored entry instead.
func (st *Store) SaveOverride(ctx context.Context, setupID, lightID string, o LightOverride) error {
	key := redis.SetupOverridesKey(setupID)

	if o.Empty() {
		if err := st.redis.HDel(ctx, key, lightID); err != nil {
			return fmt.Errorf("failed to clear override for %s: %w", lightID, err)
		}
		return nil
	}

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal override for %s: %w", lightID, err)
	}

	if err := st.redis.HSet(ctx, key, lightID, string(data)); err != nil {
		return fmt.Errorf("failed to persist override for %s: %w", lightID, err)
	}

	return nil
}

// LoadOverrides re-seeds the setup's per-light overrides. Entries for lights
// the setup no longer controls are dropped.
func (st *Store) LoadOverrides(ctx context.Context, s *Setup) {
	stored, err := st.redis.HGetAll(ctx, redis.SetupOverridesKey(s.ID))
	if err != nil || len(stored) == 0 {
		return
	}

	for lightID, raw := range stored {
		if !s.HasLight(lightID) {
			continue
		}

		var o LightOverride
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			st.logger.Warn("Ignoring stored override", "setup", s.ID, "light", lightID, "error", err)
			continue
		}
		if o.Empty() {
			continue
		}
		s.Overrides[lightID] = o
	}
}

func applyBool(stored map[string]string, field string, dst *bool) {
	if v, ok := stored[field]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func applyFloat(stored map[string]string, field string, dst *float64, lo, hi float64) {
	if v, ok := stored[field]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = clampRange(f, lo, hi)
		}
	}
}
