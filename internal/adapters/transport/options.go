package transport

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/markerrig/pkg/logger"
)

// UDPOption applies a configuration option to the UDPSender.
type UDPOption func(*UDPSender)

// WithUDPWriteTimeout bounds a single datagram write.
func WithUDPWriteTimeout(d time.Duration) UDPOption {
	return func(s *UDPSender) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithUDPLogger sets a custom logger for the sender.
func WithUDPLogger(l logger.Logger) UDPOption {
	return func(s *UDPSender) {
		if l != nil {
			s.logger = l
		}
	}
}

// MQTTOption applies a configuration option to the MQTTPublisher.
type MQTTOption func(*MQTTPublisher)

// WithMQTTTopic sets the topic prefix.
func WithMQTTTopic(topic string) MQTTOption {
	return func(p *MQTTPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithMQTTQoS sets the publish QoS level (0, 1 or 2).
func WithMQTTQoS(qos byte) MQTTOption {
	return func(p *MQTTPublisher) {
		if qos <= 2 {
			p.qos = qos
		}
	}
}

// WithMQTTClient injects a prebuilt client.
func WithMQTTClient(c mqtt.Client) MQTTOption {
	return func(p *MQTTPublisher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithMQTTLogger sets a custom logger for the publisher.
func WithMQTTLogger(l logger.Logger) MQTTOption {
	return func(p *MQTTPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}
