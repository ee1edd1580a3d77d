package lights

import (
	"context"
	"fmt"
)

// PowerState is a light's reported power state
type PowerState string

const (
	PowerOn          PowerState = "on"
	PowerOff         PowerState = "off"
	PowerUnavailable PowerState = "unavailable"
	PowerUnknown     PowerState = "unknown"
)

// Command carries the attributes to apply to one light. Nil fields are
// omitted from the dispatched message.
type Command struct {
	BrightnessPct     *int     `json:"brightness_pct,omitempty"`
	ColorTempMired    *int     `json:"color_temp_mired,omitempty"`
	TransitionSeconds *float64 `json:"transition_seconds,omitempty"`
}

// Empty reports whether the command carries no attributes beyond the light id
func (c Command) Empty() bool {
	return c.BrightnessPct == nil && c.ColorTempMired == nil && c.TransitionSeconds == nil
}

func (c Command) String() string {
	s := "{"
	if c.BrightnessPct != nil {
		s += fmt.Sprintf("brightness_pct=%d ", *c.BrightnessPct)
	}
	if c.ColorTempMired != nil {
		s += fmt.Sprintf("color_temp_mired=%d ", *c.ColorTempMired)
	}
	if c.TransitionSeconds != nil {
		s += fmt.Sprintf("transition=%.1fs", *c.TransitionSeconds)
	}
	return s + "}"
}

// Gateway abstracts the actuator side for the orchestrator
type Gateway interface {
	// PowerState returns the light's last reported power state
	PowerState(lightID string) PowerState

	// SetLight dispatches a command to a light. Dispatch respects the
	// context deadline so a slow actuator cannot stall the caller.
	SetLight(ctx context.Context, lightID string, cmd Command) error
}
