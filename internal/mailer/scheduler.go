package mailer

import (
	"context"
	"log/slog"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/model"
)

type delayOption struct {
	offset time.Duration
	label  string
}

var delayOptions = map[string]delayOption{
	"5min":  {offset: 5 * time.Minute, label: "5 minutes"},
	"1hour": {offset: time.Hour, label: "1 hour"},
	"1day":  {offset: 24 * time.Hour, label: "1 day"},
}

// Sender is the immediate-delivery path the scheduler fires into.
type Sender interface {
	Send(ctx context.Context, recipient string, summary model.Summary, transcript string) (SendResult, error)
}

type Scheduled struct {
	Time  time.Time
	Delay string
}

// Scheduler defers deliveries with one-shot timers. Pending deliveries
// live only in process memory: a restart silently drops them. A fired
// send has no caller to report to, so its failure is logged and counted
// but never retried or requeued.
type Scheduler struct {
	sender      Sender
	logger      *slog.Logger
	now         func() time.Time
	afterFunc   func(d time.Duration, fn func()) *time.Timer
	sendTimeout time.Duration
	onFired     func(err error)
}

type SchedulerOption func(*Scheduler)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithAfterFunc overrides timer registration, for tests.
func WithAfterFunc(afterFunc func(d time.Duration, fn func()) *time.Timer) SchedulerOption {
	return func(s *Scheduler) {
		s.afterFunc = afterFunc
	}
}

// WithFiredObserver registers a hook called after every fired send
// attempt with its outcome. Wired to metrics by the caller.
func WithFiredObserver(onFired func(err error)) SchedulerOption {
	return func(s *Scheduler) {
		s.onFired = onFired
	}
}

func NewScheduler(sender Sender, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sender:      sender,
		logger:      logger,
		now:         time.Now,
		afterFunc:   time.AfterFunc,
		sendTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Schedule validates the delay option, arms a one-shot timer, and returns
// without waiting for the eventual send. An unknown option is a validation
// fault and arms nothing.
func (s *Scheduler) Schedule(recipient string, summary model.Summary, transcript, option string) (Scheduled, error) {
	if err := ValidateRequest(recipient, &summary, transcript); err != nil {
		return Scheduled{}, err
	}
	delay, ok := delayOptions[option]
	if !ok {
		return Scheduled{}, fault.New(fault.Validation, "invalid schedule option")
	}

	scheduledTime := s.now().Add(delay.offset)
	s.logger.Info("email scheduled",
		"recipient", recipient,
		"scheduled_time", scheduledTime.Format(time.RFC3339),
		"delay", delay.label,
	)

	s.afterFunc(delay.offset, func() {
		s.fire(recipient, summary, transcript)
	})

	return Scheduled{Time: scheduledTime, Delay: delay.label}, nil
}

func (s *Scheduler) fire(recipient string, summary model.Summary, transcript string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	_, err := s.sender.Send(ctx, recipient, summary, transcript)
	if err != nil {
		s.logger.Error("failed to send scheduled email", "recipient", recipient, "error", err)
	} else {
		s.logger.Info("scheduled email sent", "recipient", recipient)
	}
	if s.onFired != nil {
		s.onFired(err)
	}
}
