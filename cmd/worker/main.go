// Worker consumes notification payloads from Kafka and delivers them to the
// push gateway. Set KAFKA_BROKERS, NOTIFY_KAFKA_TOPIC, KAFKA_GROUP_ID, and
// PUSH_GATEWAY_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"ticket-transfer-service/backend/internal/config"
	"ticket-transfer-service/backend/internal/notification/pushgateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.NotifyKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.PushGatewayURL == "" {
		log.Fatal("worker: PUSH_GATEWAY_URL is required")
	}

	topic := cfg.NotifyKafkaTopic
	if topic == "" {
		topic = "ticket-notifications"
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "ticket-notify-worker"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), delivering to %s", topic, groupID, cfg.PushGatewayURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := pushgateway.PushJSON(pushCtx, cfg.PushGatewayURL, msg.Value); err != nil {
			log.Printf("worker: push failed: %v", err)
		}
		pushCancel()
	}
}
