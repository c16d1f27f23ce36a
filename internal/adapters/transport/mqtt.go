package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
)

// Default MQTT configuration constants.
const (
	DefaultMQTTTopic      = "markerrig"
	defaultConnectTimeout = 5 * time.Second
	defaultPublishTimeout = 2 * time.Second
)

// MQTTPublisher mirrors markers and avatar reactions to an MQTT broker.
// It is advisory: the dispatcher never lets its failures fail a marker.
type MQTTPublisher struct {
	client         mqtt.Client
	topic          string
	qos            byte
	connectTimeout time.Duration
	publishTimeout time.Duration

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64

	logger logger.Logger
}

type markerMessage struct {
	Name string  `json:"name"`
	Code uint8   `json:"code"`
	TS   float64 `json:"ts"`
}

type reactionMessage struct {
	Reaction string  `json:"reaction"`
	Valence  float64 `json:"valence"`
	Arousal  float64 `json:"arousal"`
	TS       float64 `json:"ts"`
}

// NewMQTTPublisher builds a publisher for broker (host:port). Nothing is
// dialled until Connect.
func NewMQTTPublisher(broker, clientID string, opts ...MQTTOption) *MQTTPublisher {
	p := &MQTTPublisher{
		topic:          DefaultMQTTTopic,
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
		published:      make(map[string]uint64),
		logger:         logger.Get().Named("mqtt-publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		co := mqtt.NewClientOptions()
		co.AddBroker("tcp://" + broker)
		co.SetClientID(clientID)
		co.SetAutoReconnect(true)
		co.SetConnectRetry(false)
		co.SetMaxReconnectInterval(30 * time.Second)
		co.OnConnectionLost = func(_ mqtt.Client, err error) {
			p.logger.Warn(context.Background(), "mqtt connection lost, will auto-reconnect",
				logger.String("broker", broker),
				logger.Error(err),
			)
		}
		p.client = mqtt.NewClient(co)
	}
	return p
}

// Connect dials the broker once.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.connectTimeout) {
		return fmt.Errorf("%w: mqtt connection timeout", ErrTransport)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: mqtt connection failed: %w", ErrTransport, err)
	}
	p.logger.Info(ctx, "mqtt connection established", logger.String("topic", p.topic))
	return nil
}

// Name implements Sender.
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Send implements Sender by publishing to <topic>/markers.
func (p *MQTTPublisher) Send(ctx context.Context, m Marker) error {
	return p.publish(ctx, p.topic+"/markers", markerMessage{
		Name: m.Name,
		Code: uint8(m.Code),
		TS:   unixSeconds(m.At),
	})
}

// PublishReaction publishes a triggered reaction to <topic>/reactions.
func (p *MQTTPublisher) PublishReaction(ctx context.Context, r model.Reaction, valence, arousal float64, at time.Time) error {
	return p.publish(ctx, p.topic+"/reactions", reactionMessage{
		Reaction: r.String(),
		Valence:  valence,
		Arousal:  arousal,
		TS:       unixSeconds(at),
	})
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, v any) error {
	if !p.client.IsConnected() {
		p.recordError()
		return fmt.Errorf("%w: %w", ErrTransport, ErrNotConnected)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		p.recordError()
		return fmt.Errorf("%w: marshal: %w", ErrTransport, err)
	}

	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		p.recordError()
		return fmt.Errorf("%w: publish timeout on %s", ErrTransport, topic)
	}
	if err := token.Error(); err != nil {
		p.recordError()
		return fmt.Errorf("%w: publish on %s: %w", ErrTransport, topic, err)
	}

	p.mu.Lock()
	p.published[topic]++
	p.mu.Unlock()

	p.logger.Debug(ctx, "mqtt message published", logger.String("topic", topic), logger.Int("size", len(payload)))
	return nil
}

func (p *MQTTPublisher) recordError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}

// Stats returns per-topic publish counts and the error count.
func (p *MQTTPublisher) Stats() (map[string]uint64, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		out[k] = v
	}
	return out, p.errors
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
