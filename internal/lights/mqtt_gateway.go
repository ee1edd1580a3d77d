package lights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jkaariainen/circadia/pkg/mqtt"
)

// EdgeHandler is invoked when a light transitions to "on" from any other state
type EdgeHandler func(lightID string)

// MQTTGateway implements Gateway over the MQTT actuator bridge. It caches
// each light's power state from the retained state topics and detects
// turn-on edges.
type MQTTGateway struct {
	mqtt   mqtt.Client
	logger *slog.Logger

	mu     sync.RWMutex
	states map[string]PowerState

	onTurnOn EdgeHandler
}

// NewMQTTGateway creates a gateway on top of an MQTT client
func NewMQTTGateway(client mqtt.Client, logger *slog.Logger) *MQTTGateway {
	return &MQTTGateway{
		mqtt:   client,
		logger: logger,
		states: make(map[string]PowerState),
	}
}

// OnTurnOn registers the turn-on edge handler. Must be called before Start.
func (g *MQTTGateway) OnTurnOn(handler EdgeHandler) {
	g.onTurnOn = handler
}

// Start subscribes to the light state topics
func (g *MQTTGateway) Start() error {
	if err := g.mqtt.Subscribe(mqtt.TopicLightStates, 0, g.handleStateMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", mqtt.TopicLightStates, err)
	}
	g.logger.Info("Subscribed to light states", "topic", mqtt.TopicLightStates)
	return nil
}

// PowerState returns the light's last reported power state, PowerUnknown if
// no state message has been seen.
func (g *MQTTGateway) PowerState(lightID string) PowerState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	state, ok := g.states[lightID]
	if !ok {
		return PowerUnknown
	}
	return state
}

// SetLight publishes a command for one light. The publish runs detached so
// the context deadline bounds how long the caller waits, not the broker.
func (g *MQTTGateway) SetLight(ctx context.Context, lightID string, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command for %s: %w", lightID, err)
	}

	topic := mqtt.LightCommandTopic(lightID)
	done := make(chan error, 1)
	go func() {
		done <- g.mqtt.Publish(topic, 0, false, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to dispatch command to %s: %w", lightID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("command dispatch to %s timed out: %w", lightID, ctx.Err())
	}
}

// handleStateMessage updates the power state cache and fires the turn-on
// edge handler on a not-on -> on transition. A repeated "on" refresh is not
// an edge.
func (g *MQTTGateway) handleStateMessage(msg mqtt.Message) {
	lightID, ok := mqtt.ParseLightStateTopic(msg.Topic())
	if !ok {
		g.logger.Warn("Invalid light state topic", "topic", msg.Topic())
		return
	}

	var stateMsg struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(msg.Payload(), &stateMsg); err != nil {
		g.logger.Warn("Failed to parse light state message", "light", lightID, "error", err)
		return
	}

	newState := parsePowerState(stateMsg.State)

	g.mu.Lock()
	prev, seen := g.states[lightID]
	g.states[lightID] = newState
	g.mu.Unlock()

	if !seen {
		prev = PowerUnknown
	}

	g.logger.Debug("Light state updated", "light", lightID, "state", newState, "previous", prev)

	if newState == PowerOn && prev != PowerOn && g.onTurnOn != nil {
		g.onTurnOn(lightID)
	}
}

func parsePowerState(s string) PowerState {
	switch PowerState(s) {
	case PowerOn, PowerOff, PowerUnavailable:
		return PowerState(s)
	}
	return PowerUnknown
}
