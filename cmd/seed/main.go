// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev sender (alice@example.com) already exists.
// If JWT_PRIVATE_KEY is set, prints dev access tokens for the seeded parties.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"ticket-transfer-service/backend/internal/config"
	"ticket-transfer-service/backend/internal/db"
	partydomain "ticket-transfer-service/backend/internal/party/domain"
	partyrepo "ticket-transfer-service/backend/internal/party/repository"
	"ticket-transfer-service/backend/internal/security"
	ticketdomain "ticket-transfer-service/backend/internal/ticket/domain"
	ticketrepo "ticket-transfer-service/backend/internal/ticket/repository"
)

const (
	aliceEmail = "alice@example.com"
	aliceID    = "dev-party-alice"
	bobEmail   = "bob@example.com"
	bobID      = "dev-party-bob"
	ticket1ID  = "dev-ticket-001"
	ticket2ID  = "dev-ticket-002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	parties := partyrepo.NewPostgresRepository(conn)
	tickets := ticketrepo.NewPostgresRepository(conn)

	existing, err := parties.GetByEmail(ctx, aliceEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (alice@example.com exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()
	for _, p := range []*partydomain.Party{
		{ID: aliceID, Email: aliceEmail, Name: "Alice Seed", CreatedAt: now},
		{ID: bobID, Email: bobEmail, Name: "Bob Seed", CreatedAt: now},
	} {
		if err := parties.Create(ctx, p); err != nil {
			log.Fatalf("create party %s: %v", p.Email, err)
		}
	}

	for _, t := range []*ticketdomain.Ticket{
		{ID: ticket1ID, EventName: "Riverside Open Air", OwnerID: aliceID, CreatedAt: now, UpdatedAt: now},
		{ID: ticket2ID, EventName: "Winter Gala", OwnerID: bobID, CreatedAt: now, UpdatedAt: now},
	} {
		if err := tickets.Create(ctx, t); err != nil {
			log.Fatalf("create ticket %s: %v", t.ID, err)
		}
	}

	log.Printf("Seeded parties %s, %s and tickets %s, %s", aliceEmail, bobEmail, ticket1ID, ticket2ID)

	if cfg.JWTPrivateKey == "" {
		return
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, 24*time.Hour)
	for _, id := range []string{aliceID, bobID} {
		token, _, err := tokens.IssueAccess(id)
		if err != nil {
			log.Fatalf("issue token for %s: %v", id, err)
		}
		log.Printf("dev token for %s:\n%s", id, token)
	}
}
