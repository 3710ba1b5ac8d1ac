package notification

import (
	"context"
	"log"
	"time"
)

// sendTimeout is the max time allowed for a single async send. Used by SendAsync
// and by ShutdownDrainDuration.
const sendTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before
// shutting down shared resources, so in-flight async sends have time to
// complete. Must be >= sendTimeout.
const ShutdownDrainDuration = sendTimeout

// SendAsync runs Send in a goroutine with a short timeout so the caller is not
// blocked. Use after a state-write transaction commits; failures are logged
// and never affect the outcome of the triggering operation.
//
// notifier and n may be nil; SendAsync returns immediately without starting a
// goroutine. The goroutine uses context.Background() with sendTimeout so
// request cancellation does not abort an in-flight send.
func SendAsync(notifier Notifier, ctx context.Context, n *Notification) {
	if notifier == nil || n == nil {
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := notifier.Send(sendCtx, n); err != nil {
			log.Printf("notification: async send failed for %s: %v", n.Kind, err)
		}
	}()
}
