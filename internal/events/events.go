// Package events publishes session lifecycle events to an external feed.
// The feed is strictly fire-and-forget: the game never waits on it and a
// broken broker only costs log lines.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event names published to the feed.
const (
	PlayerJoined      = "player_joined"
	PlayerLeft        = "player_left"
	PlayerReconnected = "player_reconnected"
	ChatSent          = "chat_sent"
)

// Producer writes session events to a kafka topic. A nil Producer is valid
// and drops everything, which is how the feed is disabled.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewProducer returns a Producer for the given brokers, or nil when no
// brokers are configured.
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Emit publishes one event asynchronously. Failures are logged and dropped.
func (p *Producer) Emit(event string, payload map[string]interface{}) {
	if p == nil {
		return
	}

	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["event"] = event
	payload["ts"] = time.Now().UTC()

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warnf("events: dropping unmarshalable %s event: %v", event, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := p.writer.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
			p.logger.Warnf("events: emit %s failed: %v", event, err)
		}
	}()
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
