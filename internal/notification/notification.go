package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferSubmitted indicates an external transfer awaiting review.
	KindTransferSubmitted = "transfer_submitted"
	// KindTransferSettled indicates a reviewed transfer reached a terminal state.
	KindTransferSettled = "transfer_settled"
	// KindBillPaid indicates a completed bill payment.
	KindBillPaid = "bill_paid"
	// KindFunding indicates a deposit or withdrawal event.
	KindFunding = "funding"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Delivery is
// best-effort; callers never block or retry on failure.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
