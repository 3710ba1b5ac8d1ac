package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ticket-transfer-service/backend/internal/devcode"
	partydomain "ticket-transfer-service/backend/internal/party/domain"
	"ticket-transfer-service/backend/internal/server/middleware"
	ticketdomain "ticket-transfer-service/backend/internal/ticket/domain"
	"ticket-transfer-service/backend/internal/transfer/domain"
	transferrepo "ticket-transfer-service/backend/internal/transfer/repository"
	"ticket-transfer-service/backend/internal/transfer/service"
)

// The handler tests run the real coordinator against in-memory stores so the
// end-to-end flows exercise decoding, rule checks, CAS writes, and status
// mapping together.

type memStores struct {
	mu        sync.Mutex
	tickets   map[string]*ticketdomain.Ticket
	parties   map[string]*partydomain.Party
	transfers map[string]*domain.Transfer
}

func newMemStores() *memStores {
	return &memStores{
		tickets:   make(map[string]*ticketdomain.Ticket),
		parties:   make(map[string]*partydomain.Party),
		transfers: make(map[string]*domain.Transfer),
	}
}

func (m *memStores) GetByID(ctx context.Context, id string) (*ticketdomain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type memParties struct{ m *memStores }

func (p memParties) GetByID(ctx context.Context, id string) (*partydomain.Party, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	v, ok := p.m.parties[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (p memParties) GetByEmail(ctx context.Context, email string) (*partydomain.Party, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, v := range p.m.parties {
		if v.Email == email {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

type memTransfers struct{ m *memStores }

func (r memTransfers) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r memTransfers) GetPendingByTicket(ctx context.Context, ticketID string) (*domain.Transfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.transfers {
		if t.TicketID == ticketID && t.Status == domain.StatusPending {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memTransfers) ListByParticipant(ctx context.Context, partyID, partyEmail string, p transferrepo.Participation) ([]*domain.Transfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Transfer
	for _, t := range r.m.transfers {
		sent := t.SenderID == partyID
		received := t.RecipientID == partyID ||
			(t.RecipientID == "" && partyEmail != "" && t.RecipientEmail == partyEmail)
		if (p == transferrepo.ParticipationSent && sent) ||
			(p == transferrepo.ParticipationReceived && received) ||
			(p == transferrepo.ParticipationAny && (sent || received)) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memTransfers) Create(ctx context.Context, t *domain.Transfer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *t
	r.m.transfers[t.ID] = &cp
	return nil
}

func (r memTransfers) Accept(ctx context.Context, id, recipientID string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok || t.Status != domain.StatusPending {
		return fmt.Errorf("%w: transfer %s is no longer pending", domain.ErrConflict, id)
	}
	t.Status = domain.StatusAccepted
	t.RecipientID = recipientID
	t.UpdatedAt = at
	completed := at
	t.CompletedAt = &completed
	if ticket, ok := r.m.tickets[t.TicketID]; ok {
		ticket.OwnerID = recipientID
	}
	return nil
}

func (r memTransfers) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok || t.Status != from {
		return fmt.Errorf("%w: transfer %s is not %s", domain.ErrConflict, id, from)
	}
	t.Status = to
	t.UpdatedAt = at
	return nil
}

func (r memTransfers) Complete(ctx context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok || t.Status != domain.StatusAccepted {
		return fmt.Errorf("%w: transfer %s is not accepted", domain.ErrConflict, id)
	}
	t.Status = domain.StatusCompleted
	t.Verified = true
	t.CodeHash = ""
	t.CodeExpiresAt = nil
	t.UpdatedAt = at
	completed := at
	t.CompletedAt = &completed
	return nil
}

func (r memTransfers) SetCode(ctx context.Context, id, codeHash string, expiresAt, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok || t.Status.Terminal() {
		return fmt.Errorf("%w: transfer %s takes no code", domain.ErrConflict, id)
	}
	t.CodeHash = codeHash
	exp := expiresAt
	t.CodeExpiresAt = &exp
	t.UpdatedAt = at
	return nil
}

func (r memTransfers) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.transfers[id]
	if !ok || t.Status != domain.StatusPending {
		return fmt.Errorf("%w: transfer %s is no longer pending", domain.ErrConflict, id)
	}
	delete(r.m.transfers, id)
	return nil
}

type env struct {
	stores   *memStores
	devCodes *devcode.MemoryStore
	handler  http.Handler
}

const (
	ownerID = "party-owner"
	buyerID = "party-buyer"
	otherID = "party-other"
	assetID = "ticket-a"
)

// identity stamps the party id the way the auth middleware does, keyed off a
// fake bearer token of the form "token-<partyID>".
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer token-"
		auth := r.Header.Get("Authorization")
		if len(auth) <= len(prefix) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		partyID := auth[len(prefix):]
		next.ServeHTTP(w, r.WithContext(middleware.WithPartyID(r.Context(), partyID)))
	})
}

func newEnv(t *testing.T) *env {
	t.Helper()
	stores := newMemStores()
	stores.tickets[assetID] = &ticketdomain.Ticket{ID: assetID, EventName: "Arena Night", OwnerID: ownerID}
	stores.parties[ownerID] = &partydomain.Party{ID: ownerID, Email: "owner@example.com"}
	stores.parties[buyerID] = &partydomain.Party{ID: buyerID, Email: "buyer@example.com"}
	stores.parties[otherID] = &partydomain.Party{ID: otherID, Email: "other@example.com"}

	devCodes := devcode.NewMemoryStore()
	coord := service.NewCoordinator(
		memTransfers{stores}, stores, memParties{stores},
		nil, nil, devCodes, nil, 24*time.Hour,
	)
	mux := http.NewServeMux()
	NewHTTP(coord, memParties{stores}).Register(mux)
	return &env{stores: stores, devCodes: devCodes, handler: identity(mux)}
}

func (e *env) do(t *testing.T, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer token-"+actor)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeTransfer(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func (e *env) createHandoff(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/transfers", ownerID, map[string]any{
		"ticketId":    assetID,
		"recipientId": buyerID,
		"kind":        "HANDOFF",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeTransfer(t, rec)["id"].(string)
}

func TestHandoffLifecycle(t *testing.T) {
	e := newEnv(t)

	// Offer the ticket.
	id := e.createHandoff(t)
	rec := e.do(t, http.MethodGet, "/transfers/"+id, ownerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if got := decodeTransfer(t, rec)["status"]; got != "PENDING" {
		t.Fatalf("status = %v, want PENDING", got)
	}

	// Recipient accepts with no code in play; ownership moves now.
	rec = e.do(t, http.MethodPatch, "/transfers/"+id+"/accept", buyerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeTransfer(t, rec)
	if body["status"] != "ACCEPTED" {
		t.Errorf("status = %v, want ACCEPTED", body["status"])
	}
	if body["completedAt"] == nil {
		t.Error("completedAt should be set on accept")
	}
	if owner := e.stores.tickets[assetID].OwnerID; owner != buyerID {
		t.Errorf("ticket owner = %q, want %q", owner, buyerID)
	}

	// Sender issues a code; the response never contains it.
	rec = e.do(t, http.MethodPost, "/transfers/"+id+"/verify", ownerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify = %d, body %s", rec.Code, rec.Body.String())
	}
	code, ok := e.devCodes.Get(context.Background(), id)
	if !ok {
		t.Fatal("issued code not in dev store")
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(code)) {
		t.Error("verify response leaked the plain code")
	}

	// Wrong code is refused, right code completes.
	rec = e.do(t, http.MethodPost, "/transfers/"+id+"/complete", buyerID, map[string]any{
		"verificationCode": "000000000000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("complete with wrong code = %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/transfers/"+id+"/complete", buyerID, map[string]any{
		"verificationCode": code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d, body %s", rec.Code, rec.Body.String())
	}
	body = decodeTransfer(t, rec)
	if body["status"] != "COMPLETED" || body["verified"] != true {
		t.Errorf("completed body = %v", body)
	}
}

func TestCodeFailuresShareOneResponse(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)
	if rec := e.do(t, http.MethodPatch, "/transfers/"+id+"/accept", buyerID, nil); rec.Code != http.StatusOK {
		t.Fatalf("accept = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPost, "/transfers/"+id+"/verify", ownerID, nil); rec.Code != http.StatusOK {
		t.Fatalf("verify = %d, body %s", rec.Code, rec.Body.String())
	}
	code, ok := e.devCodes.Get(context.Background(), id)
	if !ok {
		t.Fatal("issued code not in dev store")
	}

	wrong := e.do(t, http.MethodPost, "/transfers/"+id+"/complete", buyerID, map[string]any{
		"verificationCode": "000000000000",
	})
	if wrong.Code != http.StatusBadRequest {
		t.Fatalf("complete with wrong code = %d", wrong.Code)
	}

	// Age the stored code out, then retry with the once-valid code. The
	// caller must not be able to tell this failure from the wrong guess.
	past := time.Now().Add(-time.Minute)
	e.stores.mu.Lock()
	e.stores.transfers[id].CodeExpiresAt = &past
	e.stores.mu.Unlock()

	stale := e.do(t, http.MethodPost, "/transfers/"+id+"/complete", buyerID, map[string]any{
		"verificationCode": code,
	})
	if stale.Code != http.StatusBadRequest {
		t.Fatalf("complete with expired code = %d", stale.Code)
	}
	if wrong.Body.String() != stale.Body.String() {
		t.Errorf("wrong-code body %q differs from expired-code body %q",
			wrong.Body.String(), stale.Body.String())
	}
	if msg := domain.ErrCodeInvalid.Error(); !bytes.Contains(wrong.Body.Bytes(), []byte(msg)) {
		t.Errorf("body %q does not carry %q", wrong.Body.String(), msg)
	}
}

func TestResaleZeroPriceRejected(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/transfers", ownerID, map[string]any{
		"ticketId":    assetID,
		"recipientId": buyerID,
		"kind":        "RESALE",
		"price":       "0",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("resale with zero price = %d, want 400", rec.Code)
	}
}

func TestResaleCarriesPrice(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/transfers", ownerID, map[string]any{
		"ticketId":    assetID,
		"recipientId": buyerID,
		"kind":        "RESALE",
		"price":       "79.99",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create resale = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeTransfer(t, rec)["price"]; got != "79.99" {
		t.Errorf("price = %v, want 79.99", got)
	}
}

func TestConcurrentAcceptsOneWinner(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)

	results := make(chan int, 2)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			rec := e.do(t, http.MethodPatch, "/transfers/"+id+"/accept", buyerID, nil)
			results <- rec.Code
		}()
	}
	start.Done()

	var okCount, conflictCount int
	for i := 0; i < 2; i++ {
		switch code := <-results; code {
		case http.StatusOK:
			okCount++
		case http.StatusConflict:
			conflictCount++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if okCount != 1 || conflictCount != 1 {
		t.Errorf("ok = %d, conflict = %d; want exactly one of each", okCount, conflictCount)
	}
	if owner := e.stores.tickets[assetID].OwnerID; owner != buyerID {
		t.Errorf("ticket owner = %q, want %q", owner, buyerID)
	}
}

func TestGetByStrangerIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)
	rec := e.do(t, http.MethodGet, "/transfers/"+id, otherID, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("stranger get = %d, want 401", rec.Code)
	}
}

func TestStatusMapping(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)

	cases := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		want   int
	}{
		{"get unknown transfer", http.MethodGet, "/transfers/no-such", ownerID, nil, http.StatusNotFound},
		{"create for unknown ticket", http.MethodPost, "/transfers", ownerID,
			map[string]any{"ticketId": "no-such", "recipientId": buyerID, "kind": "HANDOFF"}, http.StatusNotFound},
		{"second pending for same ticket", http.MethodPost, "/transfers", ownerID,
			map[string]any{"ticketId": assetID, "recipientId": otherID, "kind": "HANDOFF"}, http.StatusConflict},
		{"sender cannot accept", http.MethodPatch, "/transfers/" + id + "/accept", ownerID, nil, http.StatusForbidden},
		{"recipient cannot cancel", http.MethodPatch, "/transfers/" + id + "/cancel", buyerID, nil, http.StatusForbidden},
		{"recipient cannot verify", http.MethodPost, "/transfers/" + id + "/verify", buyerID, nil, http.StatusForbidden},
		{"complete while pending", http.MethodPost, "/transfers/" + id + "/complete", buyerID,
			map[string]any{"verificationCode": "ABCDEF123456"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, tc.method, tc.path, tc.actor, tc.body)
			if rec.Code != tc.want {
				t.Errorf("%s %s = %d, want %d (body %s)", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestDeletePendingOnly(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)

	if rec := e.do(t, http.MethodDelete, "/transfers/"+id, buyerID, nil); rec.Code != http.StatusForbidden {
		t.Errorf("recipient delete = %d, want 403", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/transfers/"+id, ownerID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("sender delete = %d, want 204", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/transfers/"+id, ownerID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestListFilters(t *testing.T) {
	e := newEnv(t)
	id := e.createHandoff(t)

	rec := e.do(t, http.MethodGet, "/transfers/sent", ownerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sent = %d", rec.Code)
	}
	var sent []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sent) != 1 || sent[0]["id"] != id {
		t.Errorf("sent = %v", sent)
	}

	rec = e.do(t, http.MethodGet, "/transfers/received", buyerID, nil)
	var received []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &received); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("received = %v", received)
	}

	rec = e.do(t, http.MethodGet, "/transfers", otherID, nil)
	var none []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &none); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("stranger list = %v", none)
	}
}

func TestEmailAddressedTransfer(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/transfers", ownerID, map[string]any{
		"ticketId":       assetID,
		"recipientEmail": "newcomer@example.com",
		"kind":           "HANDOFF",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	id := decodeTransfer(t, rec)["id"].(string)

	// The newcomer registers and accepts; their account becomes the recipient.
	e.stores.mu.Lock()
	e.stores.parties["party-new"] = &partydomain.Party{ID: "party-new", Email: "newcomer@example.com"}
	e.stores.mu.Unlock()

	rec = e.do(t, http.MethodPatch, "/transfers/"+id+"/accept", "party-new", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeTransfer(t, rec)["recipientId"]; got != "party-new" {
		t.Errorf("recipientId = %v, want party-new", got)
	}
}
