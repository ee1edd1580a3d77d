package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaariainen/circadia/internal/history"
	"github.com/jkaariainen/circadia/internal/lights"
	"github.com/jkaariainen/circadia/internal/setup"
	"github.com/jkaariainen/circadia/internal/solar"
	"github.com/jkaariainen/circadia/pkg/config"
	"github.com/jkaariainen/circadia/pkg/mqtt"
	"github.com/jkaariainen/circadia/pkg/redis"
)

// Orchestrator drives all configured setups. Each setup gets its own runner
// goroutine; the orchestrator owns the shared tick loop, the MQTT wiring and
// the turn-on edge routing.
type Orchestrator struct {
	mqtt     mqtt.Client
	redis    redis.Client
	cfg      *config.Config
	logger   *slog.Logger
	gateway  *lights.MQTTGateway
	provider *solar.Provider
	store    *setup.Store
	recorder *history.Recorder

	runners map[string]*runner
	order   []string
	byLight map[string][]*runner

	ticker   *time.Ticker
	stopChan chan struct{}
}

// New creates an orchestrator for the given setup configurations. The
// recorder may be nil when pass history is disabled.
func New(mqttClient mqtt.Client, redisClient redis.Client, recorder *history.Recorder, configs []setup.Config, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	gateway := lights.NewMQTTGateway(mqttClient, logger)
	provider := solar.NewProvider(solar.NewSunCalcSource(cfg.Latitude, cfg.Longitude), logger)
	store := setup.NewStore(redisClient, logger)

	o := &Orchestrator{
		mqtt:     mqttClient,
		redis:    redisClient,
		cfg:      cfg,
		logger:   logger,
		gateway:  gateway,
		provider: provider,
		store:    store,
		recorder: recorder,
		runners:  make(map[string]*runner),
		byLight:  make(map[string][]*runner),
		stopChan: make(chan struct{}),
	}

	deps := runnerDeps{
		provider:        provider,
		gateway:         gateway,
		store:           store,
		recorder:        recorder,
		publish:         o.publishTargets,
		clock:           time.Now,
		dispatchTimeout: time.Duration(cfg.DispatchTimeoutMs) * time.Millisecond,
		logger:          logger,
	}

	for _, sc := range configs {
		s := setup.New(sc)
		r := newRunner(s, deps)
		o.runners[s.ID] = r
		o.order = append(o.order, s.ID)
		for _, lightID := range s.Lights {
			o.byLight[lightID] = append(o.byLight[lightID], r)
		}
	}

	return o
}

// Start connects the external systems, restores persisted state and begins
// orchestrating. Blocks until the context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.logger.Info("Starting circadian orchestrator",
		"service_name", o.cfg.ServiceName,
		"setups", len(o.runners),
		"tick_interval_sec", o.cfg.TickIntervalSec,
		"latitude", o.cfg.Latitude,
		"longitude", o.cfg.Longitude)

	// Connect to MQTT broker
	if err := o.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// Verify Redis connection
	if err := o.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	// Restore persisted runtime state before the first pass
	for _, id := range o.order {
		r := o.runners[id]
		o.store.LoadState(ctx, r.setup)
		o.store.LoadOverrides(ctx, r.setup)
	}

	// Light state cache and turn-on edges
	o.gateway.OnTurnOn(o.handleLightOn)
	if err := o.gateway.Start(); err != nil {
		return fmt.Errorf("failed to start light gateway: %w", err)
	}

	// Control surface
	if err := o.mqtt.Subscribe(mqtt.TopicControls, 0, o.handleControlMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", mqtt.TopicControls, err)
	}
	o.logger.Info("Subscribed to setup controls", "topic", mqtt.TopicControls)

	for _, id := range o.order {
		go o.runners[id].loop(ctx)
	}

	// Initial forced pass so lights and observers get values at startup
	for _, id := range o.order {
		o.runners[id].request(true)
	}

	o.startTickLoop()

	o.logger.Info("Circadian orchestrator started and ready")

	<-ctx.Done()
	o.logger.Info("Circadian orchestrator stopping")

	return nil
}

// Stop gracefully stops the orchestrator
func (o *Orchestrator) Stop() error {
	o.logger.Info("Stopping circadian orchestrator")

	if o.ticker != nil {
		o.ticker.Stop()
	}
	close(o.stopChan)

	o.mqtt.Disconnect()

	if err := o.redis.Close(); err != nil {
		o.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	o.logger.Info("Circadian orchestrator stopped")
	return nil
}

// startTickLoop requests a regular pass for every setup. Throttling happens
// per setup inside the runner.
func (o *Orchestrator) startTickLoop() {
	interval := time.Duration(o.cfg.TickIntervalSec) * time.Second
	o.ticker = time.NewTicker(interval)

	go func() {
		o.logger.Info("Starting tick loop", "interval_sec", o.cfg.TickIntervalSec)
		for {
			select {
			case <-o.ticker.C:
				for _, id := range o.order {
					o.runners[id].request(false)
				}
			case <-o.stopChan:
				return
			}
		}
	}()
}

// handleLightOn routes an off->on edge to every setup containing the light
func (o *Orchestrator) handleLightOn(lightID string) {
	for _, r := range o.byLight[lightID] {
		r.turnOnEdge(lightID)
	}
}

// handleControlMessage routes a control topic message to its setup's runner
func (o *Orchestrator) handleControlMessage(msg mqtt.Message) {
	setupID, control, ok := mqtt.ParseControlTopic(msg.Topic())
	if !ok {
		o.logger.Warn("Malformed control topic", "topic", msg.Topic())
		return
	}

	r, ok := o.runners[setupID]
	if !ok {
		o.logger.Debug("Control for unknown setup", "setup", setupID, "control", control)
		return
	}

	r.applyControl(control, msg.Payload())
}

// publishTargets publishes a pass notification, retained so late observers
// see the latest targets
func (o *Orchestrator) publishTargets(setupID string, payload []byte) {
	topic := mqtt.TargetsTopic(setupID)
	if err := o.mqtt.Publish(topic, 0, true, payload); err != nil {
		o.logger.Warn("Failed to publish targets", "setup", setupID, "topic", topic, "error", err)
	}
}
