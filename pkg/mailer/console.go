package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConsoleTransport logs messages instead of sending them. Used in development.
type ConsoleTransport struct {
	from   Address
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsoleTransport returns a transport writing to logger.
func NewConsoleTransport(from Address, logger *zap.Logger) *ConsoleTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleTransport{from: from, logger: logger}
}

func (t *ConsoleTransport) Name() string { return "console" }

func (t *ConsoleTransport) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.String())
	}
	t.logger.Info("email",
		zap.String("from", t.from.String()),
		zap.Strings("to", to),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)

	t.mu.Lock()
	t.sent = append(t.sent, msg)
	t.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages logged so far.
func (t *ConsoleTransport) Sent() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.sent))
	copy(out, t.sent)
	return out
}
