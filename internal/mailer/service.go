// Package mailer delivers summary notifications through an SMTP relay,
// either immediately or after a fixed delay via [Scheduler].
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/model"
)

// Mirrors the address check the web client relies on: something@something.tld
// with no whitespace. Deliberately loose; the relay gets the final say.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Relay is the SMTP boundary the service talks through.
type Relay interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
	Verify(ctx context.Context) error
}

type SendResult struct {
	MessageID string
	Timestamp time.Time
}

type Service struct {
	relay  Relay
	logger *slog.Logger
	now    func() time.Time
}

type ServiceOption func(*Service)

// WithServiceClock overrides the time source, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(relay Relay, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		relay:  relay,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ValidateRequest checks recipient, summary, and transcript before any
// relay I/O.
func ValidateRequest(recipient string, summary *model.Summary, transcript string) error {
	if strings.TrimSpace(recipient) == "" {
		return fault.New(fault.Validation, "email address is required")
	}
	if !emailPattern.MatchString(recipient) {
		return fault.New(fault.Validation, "invalid email address format")
	}
	if summary == nil || len(summary.Bullets) == 0 || strings.TrimSpace(summary.NextStep) == "" {
		return fault.New(fault.Validation, "summary is required with bullets and nextStep")
	}
	if strings.TrimSpace(transcript) == "" {
		return fault.New(fault.Validation, "transcript is required")
	}
	return nil
}

// Send validates, renders, and delivers one notification. Relay failures
// are delivery faults surfaced to the caller; no retry is applied here.
func (s *Service) Send(ctx context.Context, recipient string, summary model.Summary, transcript string) (SendResult, error) {
	if err := ValidateRequest(recipient, &summary, transcript); err != nil {
		return SendResult{}, err
	}

	now := s.now()
	body, err := RenderEmail(summary, transcript, now)
	if err != nil {
		return SendResult{}, fault.Wrap(fault.Delivery, err, "render email template")
	}

	subject := "Voice Conversation Summary - " + now.Format("1/2/2006")
	messageID, err := s.relay.Send(ctx, recipient, subject, body)
	if err != nil {
		return SendResult{}, fault.Wrap(fault.Delivery, err, "failed to send email")
	}

	s.logger.Info("email sent", "recipient", recipient, "message_id", messageID)
	return SendResult{MessageID: messageID, Timestamp: now}, nil
}

// Verify reports whether the relay is reachable with the configured
// credentials. A failed probe is a false, not an error.
func (s *Service) Verify(ctx context.Context) bool {
	if err := s.relay.Verify(ctx); err != nil {
		s.logger.Warn("email configuration verification failed", "error", err)
		return false
	}
	return true
}

// ErrNotConfigured is returned by [DisabledRelay] when no SMTP settings
// were supplied.
var ErrNotConfigured = errors.New("smtp relay is not configured")

// DisabledRelay stands in for the SMTP client when the relay is
// unconfigured, so send attempts fail cleanly instead of dialing nowhere.
type DisabledRelay struct{}

func (DisabledRelay) Send(context.Context, string, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (DisabledRelay) Verify(context.Context) error {
	return ErrNotConfigured
}
