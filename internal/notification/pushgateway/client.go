// Package pushgateway delivers notification payloads to the push gateway
// consumed by client apps. The worker is its only caller.
package pushgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// envelope is the push gateway request body: one recipient, one message.
type envelope struct {
	PartyID string          `json:"partyId"`
	SentAt  string          `json:"sentAt"`
	Payload json.RawMessage `json:"payload"`
}

// payloadFields is used to parse only the fields we need from a notification JSON.
type payloadFields struct {
	PartyID   string `json:"partyId"`
	CreatedAt string `json:"createdAt"`
}

// PushJSON parses the notification JSON (Kafka message value), extracts the
// recipient and timestamp, and posts it to the gateway. If parsing fails, the
// raw payload is pushed with the current time and an empty recipient.
func PushJSON(ctx context.Context, baseURL string, rawJSON []byte) error {
	partyID := ""
	sentAt := time.Now().UTC()
	var fields payloadFields
	if err := json.Unmarshal(rawJSON, &fields); err == nil {
		partyID = fields.PartyID
		if fields.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, fields.CreatedAt); err == nil {
				sentAt = t
			}
		}
	}
	return Push(ctx, baseURL, partyID, sentAt, rawJSON)
}

// Push sends one notification payload to the gateway at baseURL
// (e.g. http://localhost:9040). Returns an error if the HTTP request fails or
// the gateway returns non-2xx.
func Push(ctx context.Context, baseURL string, partyID string, sentAt time.Time, payload []byte) error {
	if baseURL == "" {
		return fmt.Errorf("pushgateway: base URL is empty")
	}
	body, err := json.Marshal(envelope{
		PartyID: partyID,
		SentAt:  sentAt.UTC().Format(time.RFC3339Nano),
		Payload: json.RawMessage(payload),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushgateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}
