// Package notify delivers best-effort alerts. Callers hand a Notification to
// a Notifier and never learn whether it was delivered.
package notify

import (
	"context"
	"errors"
)

type Kind string

const (
	KindTransactionAlert Kind = "transaction_alert"
	KindLargeTransaction Kind = "large_transaction"
	KindFraudDigest      Kind = "fraud_digest"
)

// Notification is one alert for one recipient. Payload must be JSON-encodable.
type Notification struct {
	Kind      Kind   `json:"kind"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Payload   any    `json:"payload"`
}

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Sink performs the actual delivery.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, n Notification) error {
	var errs []error

	for _, s := range m {
		err := s.Send(ctx, n)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}

var subjects = map[Kind]string{
	KindTransactionAlert: "Suspicious Transaction Alert",
	KindLargeTransaction: "Large Transaction Alert",
	KindFraudDigest:      "Daily Fraud Report",
}

// New builds a notification with the default subject for kind.
func New(kind Kind, recipient string, payload any) Notification {
	return Notification{
		Kind:      kind,
		Recipient: recipient,
		Subject:   subjects[kind],
		Payload:   payload,
	}
}
