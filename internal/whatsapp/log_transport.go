package whatsapp

import (
	"context"
	"sync/atomic"

	"arrume_backend/platform/logger"
	"arrume_backend/platform/phone"

	"github.com/google/uuid"
)

// LogTransport writes messages to the log instead of sending them. It is the
// development stand-in for Client.
type LogTransport struct {
	log  *logger.Logger
	sent atomic.Int64
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(log *logger.Logger) *LogTransport {
	return &LogTransport{log: log}
}

// Send logs the message and returns a synthetic receipt.
func (t *LogTransport) Send(ctx context.Context, phoneNumber, message string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	t.sent.Add(1)
	receipt := Receipt{MessageID: "fake-" + uuid.NewString()}
	t.log.WithContext(ctx).Info("whatsapp message (fake transport)",
		"phone", phone.Normalize(phoneNumber),
		"display", phone.Display(phoneNumber),
		"messageId", receipt.MessageID,
		"message", message,
	)
	return receipt, nil
}

// Sent returns how many messages were logged.
func (t *LogTransport) Sent() int64 {
	return t.sent.Load()
}
