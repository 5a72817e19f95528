// Package notification delivers best-effort events addressed to an account.
package notification

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

const TopicSubscriptionUpdated = "subscription.updated"

type Notification struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	AccountID string          `json:"account_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notifier publishes a notification. Callers treat failures as non-fatal.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// New builds a notification with a time-ordered ULID.
func New(topic, accountID string, payload any, at time.Time) (Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, err
	}
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:        id.String(),
		Topic:     topic,
		AccountID: accountID,
		Payload:   raw,
		CreatedAt: at,
	}, nil
}
