// Package producer emits notification payloads to Kafka for the delivery worker.
package producer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"ticket-transfer-service/backend/internal/notification"
)

// KafkaNotifier implements notification.Notifier using segmentio/kafka-go.
type KafkaNotifier struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaNotifier creates a Kafka producer that writes notification payloads
// to the given topic. Returns (nil, nil) when brokers or topic are empty so
// callers can wire a disabled sink. Call Close when shutting down.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaNotifier{writer: writer, topic: topic}, nil
}

// Send serializes the notification as JSON and writes it to the Kafka topic,
// keyed by party id so one recipient's notifications stay ordered.
func (p *KafkaNotifier) Send(ctx context.Context, n *notification.Notification) error {
	if p == nil || p.writer == nil || n == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(n.PartyID),
		Value: payload,
	})
	if err != nil {
		log.Printf("notification: kafka send failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaNotifier) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
