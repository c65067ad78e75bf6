package tracesink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes the broker connection and topic an MQTTBackend
// publishes trace packets to.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c MQTTConfig) withDefaults() MQTTConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 2 * time.Second
	}
	return c
}

// MQTTBackend publishes trace packets to an MQTT broker as a Fanout
// backend, in the same connection-lifecycle style as timestats.MQTTSink.
type MQTTBackend struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
}

// NewMQTTBackend constructs a backend; call Connect before using it.
func NewMQTTBackend(cfg MQTTConfig) *MQTTBackend {
	return &MQTTBackend{cfg: cfg.withDefaults()}
}

// Connect establishes the broker connection.
func (b *MQTTBackend) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		b.mu.Lock()
		b.connected = true
		b.mu.Unlock()
		slog.Info("tracesink mqtt connection established", "broker", b.cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		slog.Warn("tracesink mqtt connection lost, will auto-reconnect", "error", err)
	}

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return fmt.Errorf("tracesink mqtt connect timeout")
	}
	return token.Error()
}

// Disconnect closes the broker connection.
func (b *MQTTBackend) Disconnect() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
}

func (b *MQTTBackend) isConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *MQTTBackend) publish(payload []byte) error {
	if !b.isConnected() {
		return fmt.Errorf("tracesink mqtt: not connected")
	}
	token := b.client.Publish(b.cfg.Topic, b.cfg.QoS, false, payload)
	if !token.WaitTimeout(b.cfg.PublishTimeout) {
		return fmt.Errorf("tracesink mqtt: publish timeout")
	}
	return token.Error()
}

// OnBootFinished implements Source. MQTT has no registration step beyond
// the broker connection already established by Connect.
func (b *MQTTBackend) OnBootFinished() error { return nil }

// EmitDisplayFrame implements Source.
func (b *MQTTBackend) EmitDisplayFrame(pkt DisplayFramePacket) error {
	payload, err := json.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("tracesink mqtt: marshal display frame packet: %w", err)
	}
	return b.publish(payload)
}

// EmitSurfaceFrame implements Source.
func (b *MQTTBackend) EmitSurfaceFrame(pkt SurfaceFramePacket) error {
	payload, err := json.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("tracesink mqtt: marshal surface frame packet: %w", err)
	}
	return b.publish(payload)
}
