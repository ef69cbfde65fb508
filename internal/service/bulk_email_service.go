package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/repository"
	"github.com/noah-isme/academic-panel/internal/view"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/mailer"
)

type recipientRepository interface {
	ListRecipients(ctx context.Context, courseName string, status models.EnrollmentStatus) ([]repository.Recipient, error)
}

type bulkRenderer interface {
	BulkEmail(subject, body string) (view.Email, error)
}

type bulkSender interface {
	SendBulk(ctx context.Context, msg mailer.Message) error
}

// BulkEmailConfig bounds a single bulk send.
type BulkEmailConfig struct {
	Timeout       time.Duration
	MaxRecipients int
}

// BulkEmailService sends one message to a filtered, deduplicated recipient list.
type BulkEmailService struct {
	recipients recipientRepository
	renderer   bulkRenderer
	sender     bulkSender
	activity   *ActivityService
	config     BulkEmailConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewBulkEmailService constructs a BulkEmailService.
func NewBulkEmailService(recipients recipientRepository, renderer bulkRenderer, sender bulkSender, activity *ActivityService, cfg BulkEmailConfig, validate *validator.Validate, logger *zap.Logger) *BulkEmailService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRecipients <= 0 {
		cfg.MaxRecipients = 2000
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkEmailService{recipients: recipients, renderer: renderer, sender: sender, activity: activity, config: cfg, validator: validate, logger: logger}
}

type bulkTarget struct {
	name  string
	email string
}

// Send delivers the message sequentially. Invalid addresses and failed sends are tallied, never retried.
func (s *BulkEmailService) Send(ctx context.Context, req dto.BulkEmailRequest, actorID string) (*dto.BulkEmailResult, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.CourseName = strings.TrimSpace(req.CourseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk email payload")
	}
	if !req.HasFilter() && len(req.Recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no recipients selected")
	}

	targets, invalid, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &dto.BulkEmailResult{
		Total:           len(targets) + len(invalid),
		Failed:          len(invalid),
		FailedAddresses: invalid,
	}
	if result.Total > s.config.MaxRecipients {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("too many recipients (%d > %d)", result.Total, s.config.MaxRecipients))
	}

	email, err := s.renderer.BulkEmail(req.Subject, req.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render email")
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	for i, target := range targets {
		if sendCtx.Err() != nil {
			for _, rest := range targets[i:] {
				result.FailedAddresses = append(result.FailedAddresses, rest.email)
			}
			result.Failed += len(targets) - i
			s.logger.Warn("bulk email interrupted", zap.Int("remaining", len(targets)-i), zap.Error(sendCtx.Err()))
			break
		}
		msg := mailer.Message{
			To:      []mailer.Address{{Name: target.name, Email: target.email}},
			Subject: email.Subject,
			HTML:    email.HTML,
			Text:    email.Text,
		}
		if err := s.sender.SendBulk(sendCtx, msg); err != nil {
			result.Failed++
			result.FailedAddresses = append(result.FailedAddresses, target.email)
			continue
		}
		result.Sent++
	}

	s.activity.Record(ctx, models.ActivityBulkEmailSent,
		fmt.Sprintf("%q: %d enviados, %d fallidos de %d", req.Subject, result.Sent, result.Failed, result.Total), actorID)
	s.logger.Info("bulk email finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

// collect merges filtered and explicit recipients, deduplicated by normalized address.
// Blank addresses are dropped; malformed ones are returned separately.
func (s *BulkEmailService) collect(ctx context.Context, req dto.BulkEmailRequest) ([]bulkTarget, []string, error) {
	seen := make(map[string]struct{})
	targets := make([]bulkTarget, 0)
	invalid := make([]string, 0)

	add := func(name, raw string) {
		address := mailer.NormalizeAddress(raw)
		if address == "" {
			return
		}
		if _, dup := seen[address]; dup {
			return
		}
		seen[address] = struct{}{}
		if !mailer.ValidAddress(address) {
			invalid = append(invalid, address)
			return
		}
		targets = append(targets, bulkTarget{name: name, email: address})
	}

	if req.HasFilter() {
		recipients, err := s.recipients.ListRecipients(ctx, req.CourseName, req.Status)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipients")
		}
		for _, r := range recipients {
			add(r.FullName, r.Email)
		}
	}
	for _, raw := range req.Recipients {
		add("", raw)
	}
	return targets, invalid, nil
}
