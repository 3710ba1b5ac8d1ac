package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-transfer-service/backend/internal/audit"
	auditrepo "ticket-transfer-service/backend/internal/audit/repository"
	"ticket-transfer-service/backend/internal/config"
	"ticket-transfer-service/backend/internal/db"
	"ticket-transfer-service/backend/internal/devcode"
	devcodehandler "ticket-transfer-service/backend/internal/devcode/handler"
	"ticket-transfer-service/backend/internal/notification"
	"ticket-transfer-service/backend/internal/notification/producer"
	partyrepo "ticket-transfer-service/backend/internal/party/repository"
	"ticket-transfer-service/backend/internal/security"
	"ticket-transfer-service/backend/internal/server"
	"ticket-transfer-service/backend/internal/telemetry"
	"ticket-transfer-service/backend/internal/telemetry/otel"
	ticketrepo "ticket-transfer-service/backend/internal/ticket/repository"
	transferhandler "ticket-transfer-service/backend/internal/transfer/handler"
	transferrepo "ticket-transfer-service/backend/internal/transfer/repository"
	transferservice "ticket-transfer-service/backend/internal/transfer/service"
)

const serviceName = "ticket-transfer-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, 15*time.Minute)

	var notifier notification.Notifier
	kafkaNotifier, err := producer.NewKafkaNotifier(cfg.NotifyKafkaBrokersList(), cfg.NotifyKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaNotifier != nil {
		notifier = kafkaNotifier
		defer kafkaNotifier.Close()
		log.Printf("notifications: emitting to kafka topic %s", cfg.NotifyKafkaTopic)
	} else {
		log.Print("notifications: disabled (KAFKA_BROKERS not set)")
	}

	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter(serviceName))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	var devCodes devcode.Store
	var devHandler *devcodehandler.HTTP
	if cfg.CodeReturnToClient {
		store := devcode.NewMemoryStore()
		devCodes = store
		devHandler = devcodehandler.NewHTTP(store)
		log.Print("dev code mode enabled: plain verification codes retrievable via /dev")
	}

	transfers := transferrepo.NewPostgresRepository(conn)
	tickets := ticketrepo.NewPostgresRepository(conn)
	parties := partyrepo.NewPostgresRepository(conn)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(conn))

	coord := transferservice.NewCoordinator(
		transfers, tickets, parties,
		notifier, auditLog, devCodes, metrics,
		cfg.CodeTTL(),
	)

	srv := server.NewHTTPServer(cfg.HTTPAddr, tokens, server.Deps{
		Transfers: transferhandler.NewHTTP(coord, parties),
		DevCodes:  devHandler,
		Pinger:    conn,
		Tracer:    providers.TracerProvider.Tracer(serviceName),
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Give in-flight async notification sends time to finish.
	time.Sleep(notification.ShutdownDrainDuration)
	log.Println("HTTP server stopped")
}
