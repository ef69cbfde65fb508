// Package mailer delivers outbound email through a configurable transport.
package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/pkg/config"
)

// Address is a display name plus email address.
type Address struct {
	Name  string
	Email string
}

// String renders the address in RFC 5322 form.
func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outbound email.
type Message struct {
	To          []Address
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Validate checks the message has recipients, a subject and content.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	for _, to := range m.To {
		if !ValidAddress(to.Email) {
			return fmt.Errorf("invalid recipient %q", to.Email)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("message subject required")
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("message body required")
	}
	return nil
}

// Transport sends messages.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var addressValidator = validator.New()

// ValidAddress reports whether raw is a bare email address with a dotted domain.
func ValidAddress(raw string) bool {
	return addressValidator.Var(strings.TrimSpace(raw), "required,email") == nil
}

// NormalizeAddress trims and lowercases an address for deduplication.
func NormalizeAddress(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// New builds the transport selected by cfg, wrapped in a circuit breaker when enabled.
func New(cfg config.MailConfig, logger *zap.Logger) (Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := Address{Name: cfg.FromName, Email: cfg.FromAddress}

	var transport Transport
	switch cfg.Transport {
	case "", config.MailTransportConsole:
		transport = NewConsoleTransport(from, logger)
	case config.MailTransportSMTP:
		transport = NewSMTPTransport(from, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	case config.MailTransportSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid transport requires SENDGRID_API_KEY")
		}
		transport = NewSendGridTransport(cfg.SendGridAPIKey, from)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}

	if cfg.BreakerEnabled {
		transport = NewBreaker(transport, logger)
	}
	logger.Info("mail transport configured", zap.String("transport", transport.Name()))
	return transport, nil
}
