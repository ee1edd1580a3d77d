package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout used by the agent
const (
	// Light state topics (input, retained by the actuator bridge)
	TopicLightStates = "circadia/state/light/+"

	// Setup control topics (input)
	// Pattern: circadia/control/{setup_id}/{control}
	TopicControls = "circadia/control/+/+"
)

// LightStateTopic constructs the state topic for a specific light
// Pattern: circadia/state/light/{light_id}
func LightStateTopic(lightID string) string {
	return fmt.Sprintf("circadia/state/light/%s", lightID)
}

// LightCommandTopic constructs the command topic for a specific light
// Pattern: circadia/command/light/{light_id}
func LightCommandTopic(lightID string) string {
	return fmt.Sprintf("circadia/command/light/%s", lightID)
}

// TargetsTopic constructs the recomputed-targets context topic for a setup
// Pattern: circadia/context/targets/{setup_id}
func TargetsTopic(setupID string) string {
	return fmt.Sprintf("circadia/context/targets/%s", setupID)
}

// ControlTopic constructs a control topic for a setup
// Pattern: circadia/control/{setup_id}/{control}
func ControlTopic(setupID, control string) string {
	return fmt.Sprintf("circadia/control/%s/%s", setupID, control)
}

// ParseLightStateTopic extracts the light id from a state topic.
// Returns false for topics outside the circadia/state/light/ namespace.
func ParseLightStateTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "circadia" || parts[1] != "state" || parts[2] != "light" || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}

// ParseControlTopic extracts the setup id and control name from a control topic.
func ParseControlTopic(topic string) (setupID, control string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "circadia" || parts[1] != "control" || parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
