// Package handler exposes the transfer operations over HTTP/JSON. It owns
// request decoding, the sentinel-error-to-status mapping, and nothing else;
// every rule lives below the service boundary.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	partydomain "ticket-transfer-service/backend/internal/party/domain"
	"ticket-transfer-service/backend/internal/server/middleware"
	"ticket-transfer-service/backend/internal/transfer/domain"
	transferrepo "ticket-transfer-service/backend/internal/transfer/repository"
	"ticket-transfer-service/backend/internal/transfer/service"
)

// Service is the coordinator surface the handler needs.
type Service interface {
	Create(ctx context.Context, senderID string, in service.CreateInput) (*domain.Transfer, error)
	Get(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error)
	List(ctx context.Context, actorID, actorEmail string, p transferrepo.Participation) ([]*domain.Transfer, error)
	Accept(ctx context.Context, actorID, actorEmail, id, suppliedCode string) (*domain.Transfer, error)
	Reject(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error)
	Cancel(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error)
	Remove(ctx context.Context, actorID, id string) error
	IssueVerificationCode(ctx context.Context, actorID, id string) error
	Complete(ctx context.Context, actorID, actorEmail, id, suppliedCode string) (*domain.Transfer, error)
}

// PartyDirectory resolves the acting party's email so email-addressed
// transfers can be matched to the caller.
type PartyDirectory interface {
	GetByID(ctx context.Context, id string) (*partydomain.Party, error)
}

// HTTP serves the transfer routes.
type HTTP struct {
	svc     Service
	parties PartyDirectory
}

// NewHTTP returns a transfer HTTP handler.
func NewHTTP(svc Service, parties PartyDirectory) *HTTP {
	return &HTTP{svc: svc, parties: parties}
}

// Register mounts the transfer routes on mux. The mux must sit behind the
// auth middleware.
func (h *HTTP) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transfers", h.create)
	mux.HandleFunc("GET /transfers", h.list(transferrepo.ParticipationAny))
	mux.HandleFunc("GET /transfers/sent", h.list(transferrepo.ParticipationSent))
	mux.HandleFunc("GET /transfers/received", h.list(transferrepo.ParticipationReceived))
	mux.HandleFunc("GET /transfers/{id}", h.get)
	mux.HandleFunc("PATCH /transfers/{id}/accept", h.accept)
	mux.HandleFunc("PATCH /transfers/{id}/reject", h.reject)
	mux.HandleFunc("PATCH /transfers/{id}/cancel", h.cancel)
	mux.HandleFunc("DELETE /transfers/{id}", h.remove)
	mux.HandleFunc("POST /transfers/{id}/verify", h.verify)
	mux.HandleFunc("POST /transfers/{id}/complete", h.complete)
}

type createRequest struct {
	TicketID       string           `json:"ticketId"`
	RecipientID    string           `json:"recipientId"`
	RecipientEmail string           `json:"recipientEmail"`
	Kind           string           `json:"kind"`
	Price          *decimal.Decimal `json:"price"`
}

type codeRequest struct {
	VerificationCode string `json:"verificationCode"`
}

type transferResponse struct {
	ID             string     `json:"id"`
	TicketID       string     `json:"ticketId"`
	SenderID       string     `json:"senderId"`
	RecipientID    string     `json:"recipientId,omitempty"`
	RecipientEmail string     `json:"recipientEmail,omitempty"`
	Kind           string     `json:"kind"`
	Price          *string    `json:"price,omitempty"`
	Status         string     `json:"status"`
	Verified       bool       `json:"verified"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func toResponse(t *domain.Transfer) *transferResponse {
	resp := &transferResponse{
		ID:             t.ID,
		TicketID:       t.TicketID,
		SenderID:       t.SenderID,
		RecipientID:    t.RecipientID,
		RecipientEmail: t.RecipientEmail,
		Kind:           string(t.Kind),
		Status:         string(t.Status),
		Verified:       t.Verified,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CompletedAt:    t.CompletedAt,
	}
	if t.Price != nil {
		s := t.Price.String()
		resp.Price = &s
	}
	return resp
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	partyID, ok := middleware.GetPartyID(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Create(r.Context(), partyID, service.CreateInput{
		TicketID:       req.TicketID,
		RecipientID:    req.RecipientID,
		RecipientEmail: req.RecipientEmail,
		Kind:           domain.Kind(req.Kind),
		Price:          req.Price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(t))
}

func (h *HTTP) list(p transferrepo.Participation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, email, ok := h.actor(r)
		if !ok {
			writeStatus(w, http.StatusUnauthorized, "missing identity")
			return
		}
		transfers, err := h.svc.List(r.Context(), partyID, email, p)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*transferResponse, 0, len(transfers))
		for _, t := range transfers {
			out = append(out, toResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	partyID, email, ok := h.actor(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	t, err := h.svc.Get(r.Context(), partyID, email, r.PathValue("id"))
	if err != nil {
		// A caller who is neither party learns nothing about the record.
		if errors.Is(err, domain.ErrForbidden) {
			writeStatus(w, http.StatusUnauthorized, "not a party to this transfer")
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *HTTP) accept(w http.ResponseWriter, r *http.Request) {
	partyID, email, ok := h.actor(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req codeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeStatus(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	t, err := h.svc.Accept(r.Context(), partyID, email, r.PathValue("id"), req.VerificationCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *HTTP) reject(w http.ResponseWriter, r *http.Request) {
	partyID, email, ok := h.actor(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	t, err := h.svc.Reject(r.Context(), partyID, email, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *HTTP) cancel(w http.ResponseWriter, r *http.Request) {
	partyID, email, ok := h.actor(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	t, err := h.svc.Cancel(r.Context(), partyID, email, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *HTTP) remove(w http.ResponseWriter, r *http.Request) {
	partyID, ok := middleware.GetPartyID(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if err := h.svc.Remove(r.Context(), partyID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTP) verify(w http.ResponseWriter, r *http.Request) {
	partyID, ok := middleware.GetPartyID(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if err := h.svc.IssueVerificationCode(r.Context(), partyID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	// The plain code travels only in the recipient's notification.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "verification code sent to the recipient",
	})
}

func (h *HTTP) complete(w http.ResponseWriter, r *http.Request) {
	partyID, email, ok := h.actor(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Complete(r.Context(), partyID, email, r.PathValue("id"), req.VerificationCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

// actor returns the caller's party id and, best-effort, their registered
// email. The email only matters for transfers addressed to an unregistered
// contact; lookup failures degrade to id-only matching.
func (h *HTTP) actor(r *http.Request) (partyID, email string, ok bool) {
	partyID, ok = middleware.GetPartyID(r.Context())
	if !ok {
		return "", "", false
	}
	if h.parties != nil {
		if p, err := h.parties.GetByID(r.Context(), partyID); err == nil && p != nil {
			email = p.Email
		}
	}
	return partyID, email, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps the service's sentinel errors onto HTTP status codes.
// Unknown errors are logged and surfaced as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeStatus(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCodeInvalid):
		// One message for every code failure. Anything wrapped around the
		// sentinel stays out of the body so callers cannot tell a wrong
		// guess from a stale one.
		writeStatus(w, http.StatusBadRequest, domain.ErrCodeInvalid.Error())
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidState):
		writeStatus(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("handler: internal error: %v", err)
		writeStatus(w, http.StatusInternalServerError, "internal error")
	}
}
