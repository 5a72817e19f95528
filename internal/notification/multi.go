package notification

import (
	"context"
	"errors"
)

// MultiPublisher publishes to every notifier and joins their errors.
type MultiPublisher struct {
	notifiers []Notifier
}

func NewMultiPublisher(notifiers ...Notifier) *MultiPublisher {
	kept := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &MultiPublisher{notifiers: kept}
}

func (m *MultiPublisher) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
