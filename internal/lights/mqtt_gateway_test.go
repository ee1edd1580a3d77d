package lights

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jkaariainen/circadia/pkg/mqtt"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack()            {}

type publishedMessage struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeMQTT captures subscriptions and publishes for inspection
type fakeMQTT struct {
	mu         sync.Mutex
	handlers   map[string]mqtt.MessageHandler
	published  []publishedMessage
	publishErr error
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) IsConnected() bool                 { return true }

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{topic: topic, retained: retained, payload: payload})
	return nil
}

func (f *fakeMQTT) deliver(topic string, payload string) {
	f.mu.Lock()
	handler := f.handlers[mqtt.TopicLightStates]
	f.mu.Unlock()
	handler(&fakeMessage{topic: topic, payload: []byte(payload)})
}

func (f *fakeMQTT) lastPublished() (publishedMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return publishedMessage{}, false
	}
	return f.published[len(f.published)-1], true
}

func gatewayLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startGateway(t *testing.T) (*MQTTGateway, *fakeMQTT) {
	t.Helper()
	client := newFakeMQTT()
	g := NewMQTTGateway(client, gatewayLogger())
	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g, client
}

func TestPowerStateTracking(t *testing.T) {
	g, client := startGateway(t)

	if got := g.PowerState("lamp"); got != PowerUnknown {
		t.Errorf("unseen light state = %s, want unknown", got)
	}

	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"on"}`)
	if got := g.PowerState("lamp"); got != PowerOn {
		t.Errorf("state = %s, want on", got)
	}

	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"off"}`)
	if got := g.PowerState("lamp"); got != PowerOff {
		t.Errorf("state = %s, want off", got)
	}

	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"unavailable"}`)
	if got := g.PowerState("lamp"); got != PowerUnavailable {
		t.Errorf("state = %s, want unavailable", got)
	}

	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"weird"}`)
	if got := g.PowerState("lamp"); got != PowerUnknown {
		t.Errorf("state = %s, want unknown for unrecognized value", got)
	}
}

func TestTurnOnEdgeDetection(t *testing.T) {
	client := newFakeMQTT()
	g := NewMQTTGateway(client, gatewayLogger())

	var edges []string
	g.OnTurnOn(func(lightID string) {
		edges = append(edges, lightID)
	})
	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First "on" from unknown is an edge
	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"on"}`)
	// Repeated "on" refresh is not
	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"on"}`)
	// off -> on is an edge again
	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"off"}`)
	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"on"}`)
	// Turning off is never an edge
	client.deliver(mqtt.LightStateTopic("lamp"), `{"state":"off"}`)

	if len(edges) != 2 {
		t.Fatalf("got %d edges (%v), want 2", len(edges), edges)
	}
	for _, id := range edges {
		if id != "lamp" {
			t.Errorf("edge for %q, want lamp", id)
		}
	}
}

func TestHandleStateMessageIgnoresJunk(t *testing.T) {
	g, client := startGateway(t)

	client.deliver("circadia/state/light", `{"state":"on"}`)
	client.deliver(mqtt.LightStateTopic("lamp"), `not json`)

	if got := g.PowerState("lamp"); got != PowerUnknown {
		t.Errorf("junk payload changed state to %s", got)
	}
}

func TestSetLightPublishesCommand(t *testing.T) {
	g, client := startGateway(t)

	brightness := 72
	mired := 250
	transition := 2.0
	cmd := Command{BrightnessPct: &brightness, ColorTempMired: &mired, TransitionSeconds: &transition}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := g.SetLight(ctx, "lamp", cmd); err != nil {
		t.Fatalf("SetLight failed: %v", err)
	}

	msg, ok := client.lastPublished()
	if !ok {
		t.Fatal("nothing published")
	}
	if msg.topic != mqtt.LightCommandTopic("lamp") {
		t.Errorf("topic = %s, want %s", msg.topic, mqtt.LightCommandTopic("lamp"))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded["brightness_pct"] != 72.0 {
		t.Errorf("brightness_pct = %v, want 72", decoded["brightness_pct"])
	}
	if decoded["color_temp_mired"] != 250.0 {
		t.Errorf("color_temp_mired = %v, want 250", decoded["color_temp_mired"])
	}
	if decoded["transition_seconds"] != 2.0 {
		t.Errorf("transition_seconds = %v, want 2", decoded["transition_seconds"])
	}
}

func TestSetLightOmitsNilFields(t *testing.T) {
	g, client := startGateway(t)

	brightness := 30
	ctx := context.Background()
	if err := g.SetLight(ctx, "lamp", Command{BrightnessPct: &brightness}); err != nil {
		t.Fatalf("SetLight failed: %v", err)
	}

	msg, _ := client.lastPublished()
	var decoded map[string]interface{}
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if _, ok := decoded["color_temp_mired"]; ok {
		t.Error("nil color temp serialized")
	}
	if _, ok := decoded["transition_seconds"]; ok {
		t.Error("nil transition serialized")
	}
}

func TestSetLightReportsPublishError(t *testing.T) {
	g, client := startGateway(t)
	client.publishErr = errors.New("broker gone")

	brightness := 30
	err := g.SetLight(context.Background(), "lamp", Command{BrightnessPct: &brightness})
	if err == nil {
		t.Fatal("expected error from failed publish")
	}
}

func TestCommandEmpty(t *testing.T) {
	if !(Command{}).Empty() {
		t.Error("zero command should be empty")
	}
	v := 10
	if (Command{BrightnessPct: &v}).Empty() {
		t.Error("command with brightness should not be empty")
	}
}
