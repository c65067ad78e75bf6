package timestats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes the broker connection and topics a MQTTSink
// publishes to.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	SurfaceTopic   string
	DisplayTopic   string
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

// MQTTSink publishes present summaries to an MQTT broker, one topic for
// surface frames and one for display frames. Connection handling mirrors
// the reference emitter: auto-reconnect, structured logging on every
// transition, and a connected flag that Publish checks before attempting
// anything.
type MQTTSink struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTSink constructs a sink; call Connect before using it as a Sink.
func NewMQTTSink(cfg MQTTConfig) *MQTTSink {
	return &MQTTSink{cfg: cfg.withDefaults()}
}

// Connect establishes the broker connection.
func (s *MQTTSink) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		slog.Info("timestats mqtt connection established", "broker", s.cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		slog.Warn("timestats mqtt connection lost, will auto-reconnect", "error", err)
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("timestats mqtt connect timeout")
	}
	return token.Error()
}

// Disconnect closes the broker connection.
func (s *MQTTSink) Disconnect() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

func (s *MQTTSink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *MQTTSink) publish(topic string, payload []byte) {
	if !s.isConnected() {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		return
	}
	token := s.client.Publish(topic, s.cfg.QoS, false, payload)
	if !token.WaitTimeout(s.cfg.PublishTimeout) || token.Error() != nil {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.published++
	s.mu.Unlock()
}

// RecordSurfaceFrame implements Sink.
func (s *MQTTSink) RecordSurfaceFrame(rec SurfaceFrameRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("timestats: failed to marshal surface frame record", "error", err)
		return
	}
	s.publish(s.cfg.SurfaceTopic, payload)
}

// RecordDisplayFrame implements Sink.
func (s *MQTTSink) RecordDisplayFrame(rec DisplayFrameRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("timestats: failed to marshal display frame record", "error", err)
		return
	}
	s.publish(s.cfg.DisplayTopic, payload)
}

// Stats is a snapshot of the sink's publish counters.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns a snapshot of publish counters.
func (s *MQTTSink) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Connected: s.connected, Published: s.published, Errors: s.errors}
}
