// Package handler implements the dev-only code retrieval endpoint. Only
// mounted when dev code mode is enabled and never in production.
package handler

import (
	"encoding/json"
	"net/http"

	"ticket-transfer-service/backend/internal/devcode"
)

const devCodeNote = "DEV MODE ONLY"

// HTTP serves GET /dev/transfers/{id}/code from the dev code store.
type HTTP struct {
	store devcode.Store
}

// NewHTTP returns a dev code handler that reads from the given store.
func NewHTTP(store devcode.Store) *HTTP {
	return &HTTP{store: store}
}

// Register mounts the dev route on mux.
func (h *HTTP) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dev/transfers/{id}/code", h.getCode)
}

func (h *HTTP) getCode(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("id")
	code, ok := h.store.Get(r.Context(), transferID)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "code not found or expired"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code": code,
		"note": devCodeNote,
	})
}
