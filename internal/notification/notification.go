package notification

import (
	"context"
	"log/slog"
)

const (
	// KindWelcome is sent once an account has been registered.
	KindWelcome = "account_welcome"
	// KindKYCDecision is sent when an administrator records a KYC review outcome.
	KindKYCDecision = "kyc_decision"
	// KindAccountStatus is sent when an account is disabled or re-enabled.
	KindAccountStatus = "account_status"
)

// Message describes a notification payload. Destination is the recipient phone number.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger until an SMS gateway is wired.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Recorder keeps sent messages in memory. Tests use it to assert on deliveries.
type Recorder struct {
	Messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.Messages = append(r.Messages, message)
	return nil
}
