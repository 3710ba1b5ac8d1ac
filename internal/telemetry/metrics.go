// Package telemetry exposes domain metrics for the transfer service.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records transfer lifecycle counters. A nil *Metrics is a valid
// no-op receiver so callers do not have to branch on whether telemetry
// was configured.
type Metrics struct {
	transitions metric.Int64Counter
	codesIssued metric.Int64Counter
	codeChecks  metric.Int64Counter
}

// NewMetrics registers the transfer counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter(
		"transfer.transitions",
		metric.WithDescription("Transfer status transitions by target status"),
	)
	if err != nil {
		return nil, err
	}
	codesIssued, err := meter.Int64Counter(
		"transfer.verification_codes_issued",
		metric.WithDescription("Verification codes issued"),
	)
	if err != nil {
		return nil, err
	}
	codeChecks, err := meter.Int64Counter(
		"transfer.verification_code_checks",
		metric.WithDescription("Verification code checks by result"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		transitions: transitions,
		codesIssued: codesIssued,
		codeChecks:  codeChecks,
	}, nil
}

// RecordTransition counts a completed status transition.
func (m *Metrics) RecordTransition(ctx context.Context, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", to)))
}

// RecordCodeIssued counts an issued verification code.
func (m *Metrics) RecordCodeIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.codesIssued.Add(ctx, 1)
}

// RecordCodeCheck counts a verification code check and its outcome.
func (m *Metrics) RecordCodeCheck(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.codeChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
