package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/config"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/protocol"
)

// Display is the part of the shared controller the bridge drives.
type Display interface {
	device.EventSubscriber
	Apply(cmd device.Command) error
	Pixels() []device.RGB
}

// State is the retained payload on the state topic.
type State struct {
	Command   string       `json:"command,omitempty"`
	Pixels    []device.RGB `json:"pixels"`
	Timestamp time.Time    `json:"timestamp"`
}

// Bridge connects the display to an MQTT broker.
type Bridge struct {
	cfg      config.MQTTConfig
	topics   Topics
	display  Display
	codec    *protocol.Codec
	recorder metrics.Recorder

	client pahomqtt.Client
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRecorder records every command received over MQTT.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Bridge) { b.recorder = r }
}

// WithCodec replaces the default command codec.
func WithCodec(c *protocol.Codec) Option {
	return func(b *Bridge) { b.codec = c }
}

// NewBridge creates a bridge; nothing connects until Run.
func NewBridge(cfg config.MQTTConfig, display Display, opts ...Option) (*Bridge, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, cfg.QoS)
	}
	b := &Bridge{
		cfg:      cfg,
		topics:   Topics{Prefix: cfg.TopicPrefix},
		display:  display,
		codec:    protocol.NewCodec(nil),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bridge) Name() string {
	return "mqtt"
}

// Run connects, serves commands and publishes state until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	opts := buildClientOptions(b.cfg, b.topics)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) { b.handleConnect(c) })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		log.Debug().Str("broker", b.cfg.BrokerURL()).Msg("MQTT reconnecting")
	})

	b.client = pahomqtt.NewClient(opts)

	// Subscribe before connecting so the first snapshot is not missed.
	events := b.display.Subscribe()
	defer b.display.Unsubscribe(events)

	token := b.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
	case <-time.After(defaultConnectTimeout):
		log.Warn().Str("broker", b.cfg.BrokerURL()).Msg("MQTT broker not reachable yet, retrying in background")
	case <-ctx.Done():
		b.client.Disconnect(0)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			b.close()
			return nil
		case ev, ok := <-events:
			if !ok {
				// Display shut down.
				b.close()
				return nil
			}
			b.publishState(State{Command: ev.Command.String(), Pixels: ev.Pixels, Timestamp: time.Now()})
		}
	}
}

// handleConnect runs on every (re)connect. Sessions are clean, so the
// subscription is renewed each time.
func (b *Bridge) handleConnect(c pahomqtt.Client) {
	log.Info().Str("broker", b.cfg.BrokerURL()).Str("topic", b.topics.Command()).Msg("MQTT connected")

	token := c.Subscribe(b.topics.Command(), byte(b.cfg.QoS), b.wrapHandler(b.handleCommand))
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			log.Error().Err(ErrSubscribeFailed).Msg("MQTT subscribe timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Error().Err(fmt.Errorf("%w: %w", ErrSubscribeFailed, err)).Msg("MQTT subscribe failed")
		}
	}()

	go func() {
		if err := b.publish(b.topics.Status(), []byte(statusPayload(b.cfg.ClientID, "online", "")), true); err != nil {
			log.Warn().Err(err).Msg("Failed to publish MQTT status")
		}
		b.publishState(State{Pixels: b.display.Pixels(), Timestamp: time.Now()})
	}()
}

func (b *Bridge) close() {
	if b.client.IsConnectionOpen() {
		if err := b.publish(b.topics.Status(), []byte(statusPayload(b.cfg.ClientID, "offline", "graceful_shutdown")), true); err != nil {
			log.Warn().Err(err).Msg("Failed to publish MQTT offline status")
		}
	}
	b.client.Disconnect(defaultDisconnectQuiesce)
	log.Info().Msg("MQTT bridge stopped")
}

// handleCommand decodes and applies one command, returning the reply line.
func (b *Bridge) handleCommand(payload []byte) string {
	start := time.Now()

	cmd, err := b.codec.Decode(payload)
	if err == nil {
		err = b.display.Apply(cmd)
	}
	b.recorder.RecordCommand(metrics.SourceMQTT, cmd, err, time.Since(start))

	if err != nil {
		log.Debug().Err(err).Msg("MQTT command rejected")
	}
	return protocol.ResponseFor(err).String()
}

// wrapHandler turns a command handler into a paho callback that publishes
// the reply and survives panics.
func (b *Bridge) wrapHandler(handle func([]byte) string) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("topic", msg.Topic()).Msg("MQTT handler panic recovered")
			}
		}()

		reply := handle(msg.Payload())
		if err := b.publish(b.topics.Response(), []byte(reply), false); err != nil {
			log.Warn().Err(err).Msg("Failed to publish MQTT response")
		}
	}
}

func (b *Bridge) publishState(s State) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode MQTT state")
		return
	}
	if err := b.publish(b.topics.State(), payload, true); err != nil {
		log.Debug().Err(err).Msg("Failed to publish MQTT state")
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := b.client.Publish(topic, byte(b.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
