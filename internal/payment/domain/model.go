// Package domain defines payment gateway adapters and the webhook reconciler contract.
package domain

import (
	"context"
	"net/http"
	"time"
)

// Outcome is the result of one webhook delivery.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (GatewayAdapter, error)
}

// GatewayAdapter verifies and parses a gateway's raw webhook deliveries.
type GatewayAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// Parse returns ErrEventIgnored for events other than a captured payment.
	Parse(ctx context.Context, payload []byte) (*CapturedEvent, error)
}

// CapturedEvent is a captured payment with the subscription details carried in its notes.
type CapturedEvent struct {
	Provider     string
	EventID      string
	PaymentID    string
	OrderID      string
	Amount       int64
	Currency     string
	Method       string
	Status       string
	CapturedAt   time.Time
	AccountID    string
	PlanID       string
	PlanName     string
	BillingCycle string
	BedCount     int
	BranchCount  int
}

type Service interface {
	HandlePaymentCaptured(ctx context.Context, provider string, payload []byte, headers http.Header) (Outcome, error)
}
