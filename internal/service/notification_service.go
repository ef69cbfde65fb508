package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/view"
	"github.com/noah-isme/academic-panel/pkg/jobs"
	"github.com/noah-isme/academic-panel/pkg/mailer"
)

// Email kinds used as metric labels.
const (
	emailKindApproval = "approval"
	emailKindInvoice  = "invoice"
	emailKindBulk     = "bulk"
)

// ErrNoRecipient is returned when a notification target has no usable address.
var ErrNoRecipient = errors.New("recipient has no valid email address")

type emailRenderer interface {
	ApprovalEmail(row models.EnrollmentRow) (view.Email, error)
	InvoiceEmail(payment *models.Payment, link string) (view.Email, error)
}

// outboundMail carries a message through the delivery queue together with its metric label.
type outboundMail struct {
	Kind    string
	Message mailer.Message
}

// NotificationService renders and delivers transactional emails, through the job queue when enabled.
type NotificationService struct {
	transport mailer.Transport
	renderer  emailRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	queue     *jobs.Queue[outboundMail]
}

// NewNotificationService constructs a NotificationService delivering inline.
func NewNotificationService(transport mailer.Transport, renderer emailRenderer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{transport: transport, renderer: renderer, metrics: metrics, logger: logger}
}

// EnableQueue routes approval and invoice emails through a retrying worker pool.
// The caller owns the returned queue's Start/Stop lifecycle.
func (s *NotificationService) EnableQueue(cfg jobs.QueueConfig) *jobs.Queue[outboundMail] {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job[outboundMail]) error {
		return s.deliver(ctx, job.Payload)
	}, cfg)
	return s.queue
}

// NotifyApproval sends the matriculation confirmation to the student.
func (s *NotificationService) NotifyApproval(ctx context.Context, row models.EnrollmentRow) error {
	if !mailer.ValidAddress(row.StudentEmail) {
		return ErrNoRecipient
	}
	email, err := s.renderer.ApprovalEmail(row)
	if err != nil {
		return fmt.Errorf("render approval email: %w", err)
	}
	msg := mailer.Message{
		To:      []mailer.Address{{Name: row.StudentName, Email: mailer.NormalizeAddress(row.StudentEmail)}},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	}
	return s.dispatch(ctx, outboundMail{Kind: emailKindApproval, Message: msg})
}

// SendInvoice emails the receipt link with the rendered PDF attached.
func (s *NotificationService) SendInvoice(ctx context.Context, payment *models.Payment, link string, pdf []byte) error {
	if !mailer.ValidAddress(payment.StudentEmail) {
		return ErrNoRecipient
	}
	email, err := s.renderer.InvoiceEmail(payment, link)
	if err != nil {
		return fmt.Errorf("render invoice email: %w", err)
	}
	msg := mailer.Message{
		To:      []mailer.Address{{Name: payment.StudentName, Email: mailer.NormalizeAddress(payment.StudentEmail)}},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	}
	if len(pdf) > 0 {
		msg.Attachments = []mailer.Attachment{{Filename: "comprobante.pdf", ContentType: "application/pdf", Content: pdf}}
	}
	return s.dispatch(ctx, outboundMail{Kind: emailKindInvoice, Message: msg})
}

// SendBulk delivers one bulk message inline without retries.
func (s *NotificationService) SendBulk(ctx context.Context, msg mailer.Message) error {
	return s.deliver(ctx, outboundMail{Kind: emailKindBulk, Message: msg})
}

func (s *NotificationService) dispatch(ctx context.Context, mail outboundMail) error {
	if s.queue != nil {
		id, err := s.queue.Enqueue(mail)
		if err == nil {
			s.logger.Debug("email queued", zap.String("job_id", id), zap.String("kind", mail.Kind))
			return nil
		}
		s.logger.Warn("notification queue unavailable, sending inline", zap.Error(err))
	}
	return s.deliver(ctx, mail)
}

func (s *NotificationService) deliver(ctx context.Context, mail outboundMail) error {
	if s.transport == nil {
		return errors.New("mail transport not configured")
	}
	err := s.transport.Send(ctx, mail.Message)
	s.metrics.RecordEmail(mail.Kind, err)
	if err != nil {
		s.logger.Warn("email delivery failed",
			zap.String("kind", mail.Kind),
			zap.String("transport", s.transport.Name()),
			zap.Error(err))
	}
	return err
}
