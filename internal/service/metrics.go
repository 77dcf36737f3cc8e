package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sign-in outcomes recorded by Metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnconfirmed        = "unconfirmed"
	OutcomeError              = "error"
)

// Metrics records token lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	signIns   metric.Int64Counter
	issued    metric.Int64Counter
	refreshed metric.Int64Counter
	revoked   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	signIns, err := meter.Int64Counter("auth.sign_in",
		metric.WithDescription("Sign-in attempts by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in counter: %w", err)
	}

	issued, err := meter.Int64Counter("auth.tokens.issued",
		metric.WithDescription("Access token pairs created"))
	if err != nil {
		return nil, fmt.Errorf("failed to create issued counter: %w", err)
	}

	refreshed, err := meter.Int64Counter("auth.tokens.refreshed",
		metric.WithDescription("Access token pairs rotated through a refresh token"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refreshed counter: %w", err)
	}

	revoked, err := meter.Int64Counter("auth.tokens.revoked",
		metric.WithDescription("Access token pairs revoked on sign-out"))
	if err != nil {
		return nil, fmt.Errorf("failed to create revoked counter: %w", err)
	}

	return &Metrics{
		signIns:   signIns,
		issued:    issued,
		refreshed: refreshed,
		revoked:   revoked,
	}, nil
}

func (m *Metrics) SignIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.signIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) TokenIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1)
}

func (m *Metrics) TokenRefreshed(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshed.Add(ctx, 1)
}

func (m *Metrics) TokenRevoked(ctx context.Context) {
	if m == nil {
		return
	}
	m.revoked.Add(ctx, 1)
}
