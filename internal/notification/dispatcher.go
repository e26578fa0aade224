// Package notification delivers outbound messages to approvers, submitters
// and clients. Delivery is always best effort: callers log failures and never
// let them abort the state transition that triggered the message.
package notification

import (
	"context"

	"go.uber.org/zap"
)

// Message is a rendered notification payload.
type Message struct {
	Subject string
	Body    string
}

// Dispatcher attempts delivery of a message to a single recipient address.
// Implementations report failure through the returned error only; they must
// not panic or block past their configured timeout.
type Dispatcher interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

// LogDispatcher is the default channel when no relay is configured. It logs
// every message instead of delivering it, which keeps development and test
// environments from needing SMTP credentials.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Send logs the message and reports success.
func (d *LogDispatcher) Send(_ context.Context, recipient string, msg Message) error {
	d.logger.Info("Notification (log channel)",
		zap.String("recipient", recipient),
		zap.String("subject", msg.Subject))
	return nil
}
