// Package server assembles the HTTP surface: route mounting, bearer auth on
// the protected routes, tracing, liveness, and server timeouts.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	devcodehandler "ticket-transfer-service/backend/internal/devcode/handler"
	"ticket-transfer-service/backend/internal/security"
	"ticket-transfer-service/backend/internal/server/middleware"
	transferhandler "ticket-transfer-service/backend/internal/transfer/handler"
)

// Pinger reports storage reachability for the health endpoint (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the handlers and probes the server mounts.
type Deps struct {
	// Transfers serves the transfer routes. Required.
	Transfers *transferhandler.HTTP
	// DevCodes serves the dev-only code retrieval route. If nil, the route is
	// not mounted. Set only when dev code mode is enabled and not production.
	DevCodes *devcodehandler.HTTP
	// Pinger is checked by /healthz. If nil, the DB ping is skipped.
	Pinger Pinger
	// Tracer wraps every request in a span. If nil, tracing is disabled.
	Tracer trace.Tracer
}

// NewHTTPServer builds the http.Server: /healthz is public, everything else
// sits behind bearer auth.
func NewHTTPServer(addr string, tokens *security.TokenProvider, deps Deps) *http.Server {
	protected := http.NewServeMux()
	if deps.Transfers != nil {
		deps.Transfers.Register(protected)
	}
	if deps.DevCodes != nil {
		deps.DevCodes.Register(protected)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", healthz(deps.Pinger))
	root.Handle("/", middleware.Auth(tokens)(protected))

	return &http.Server{
		Addr:              addr,
		Handler:           middleware.Trace(deps.Tracer)(root),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func healthz(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
