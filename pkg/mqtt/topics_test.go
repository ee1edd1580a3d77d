package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicBuilders(t *testing.T) {
	assert.Equal(t, "circadia/state/light/kitchen_ceiling", LightStateTopic("kitchen_ceiling"))
	assert.Equal(t, "circadia/command/light/kitchen_ceiling", LightCommandTopic("kitchen_ceiling"))
	assert.Equal(t, "circadia/context/targets/living-room", TargetsTopic("living-room"))
	assert.Equal(t, "circadia/control/living-room/bedtime", ControlTopic("living-room", "bedtime"))
}

func TestParseLightStateTopic(t *testing.T) {
	lightID, ok := ParseLightStateTopic("circadia/state/light/kitchen_ceiling")
	require.True(t, ok)
	assert.Equal(t, "kitchen_ceiling", lightID)

	_, ok = ParseLightStateTopic("circadia/state/light/")
	assert.False(t, ok)

	_, ok = ParseLightStateTopic("circadia/state/sensor/kitchen")
	assert.False(t, ok)

	_, ok = ParseLightStateTopic("circadia/state/light/a/b")
	assert.False(t, ok)
}

func TestParseControlTopic(t *testing.T) {
	setupID, control, ok := ParseControlTopic("circadia/control/living-room/max_kelvin")
	require.True(t, ok)
	assert.Equal(t, "living-room", setupID)
	assert.Equal(t, "max_kelvin", control)

	_, _, ok = ParseControlTopic("circadia/control/living-room")
	assert.False(t, ok)

	_, _, ok = ParseControlTopic("circadia/state/light/lamp")
	assert.False(t, ok)

	_, _, ok = ParseControlTopic("circadia/control//bedtime")
	assert.False(t, ok)
}

func TestBuilderParserSymmetry(t *testing.T) {
	lightID, ok := ParseLightStateTopic(LightStateTopic("desk_lamp"))
	require.True(t, ok)
	assert.Equal(t, "desk_lamp", lightID)

	setupID, control, ok := ParseControlTopic(ControlTopic("office", "shaping_function"))
	require.True(t, ok)
	assert.Equal(t, "office", setupID)
	assert.Equal(t, "shaping_function", control)
}
