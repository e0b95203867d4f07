package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/model"
)

type fakeSender struct {
	err error

	calls      int
	recipient  string
	summary    model.Summary
	transcript string
}

func (f *fakeSender) Send(_ context.Context, recipient string, summary model.Summary, transcript string) (SendResult, error) {
	f.calls++
	f.recipient = recipient
	f.summary = summary
	f.transcript = transcript
	if f.err != nil {
		return SendResult{}, f.err
	}
	return SendResult{MessageID: "msg-1"}, nil
}

// timerCapture records armed timers without real clocks; Fire runs a
// pending callback synchronously.
type timerCapture struct {
	delays    []time.Duration
	callbacks []func()
}

func (tc *timerCapture) afterFunc(d time.Duration, fn func()) *time.Timer {
	tc.delays = append(tc.delays, d)
	tc.callbacks = append(tc.callbacks, fn)
	return nil
}

func (tc *timerCapture) Fire(i int) {
	tc.callbacks[i]()
}

func TestScheduleArmsTimerAndReturnsImmediately(t *testing.T) {
	sender := &fakeSender{}
	timers := &timerCapture{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := NewScheduler(sender, quietLogger, WithClock(fixedClock(now)), WithAfterFunc(timers.afterFunc))

	res, err := sched.Schedule("user@example.com", testSummary(), "transcript", "5min")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if !res.Time.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected scheduled time: %v", res.Time)
	}
	if res.Delay != "5 minutes" {
		t.Fatalf("unexpected delay label: %q", res.Delay)
	}
	if len(timers.delays) != 1 || timers.delays[0] != 5*time.Minute {
		t.Fatalf("unexpected timer registration: %v", timers.delays)
	}
	if sender.calls != 0 {
		t.Fatal("send attempted before the timer elapsed")
	}
}

func TestScheduleFiresExactlyOneSendWithOriginalPayload(t *testing.T) {
	sender := &fakeSender{}
	timers := &timerCapture{}
	sched := NewScheduler(sender, quietLogger, WithAfterFunc(timers.afterFunc))

	summary := testSummary()
	if _, err := sched.Schedule("user@example.com", summary, "the transcript", "1hour"); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	timers.Fire(0)

	if sender.calls != 1 {
		t.Fatalf("expected exactly 1 send, got %d", sender.calls)
	}
	if sender.recipient != "user@example.com" {
		t.Fatalf("unexpected recipient: %q", sender.recipient)
	}
	if sender.transcript != "the transcript" {
		t.Fatalf("unexpected transcript: %q", sender.transcript)
	}
	if len(sender.summary.Bullets) != 5 || sender.summary.NextStep != "send proposal" {
		t.Fatalf("unexpected summary: %+v", sender.summary)
	}
}

func TestScheduleDelayOffsets(t *testing.T) {
	cases := []struct {
		option string
		offset time.Duration
		label  string
	}{
		{"5min", 5 * time.Minute, "5 minutes"},
		{"1hour", time.Hour, "1 hour"},
		{"1day", 24 * time.Hour, "1 day"},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		t.Run(tc.option, func(t *testing.T) {
			timers := &timerCapture{}
			sched := NewScheduler(&fakeSender{}, quietLogger, WithClock(fixedClock(now)), WithAfterFunc(timers.afterFunc))
			res, err := sched.Schedule("user@example.com", testSummary(), "t", tc.option)
			if err != nil {
				t.Fatalf("Schedule(%q) error = %v", tc.option, err)
			}
			if !res.Time.Equal(now.Add(tc.offset)) {
				t.Fatalf("scheduled time = %v, want %v", res.Time, now.Add(tc.offset))
			}
			if res.Delay != tc.label {
				t.Fatalf("delay label = %q, want %q", res.Delay, tc.label)
			}
		})
	}
}

func TestScheduleRejectsUnknownOptionAndArmsNothing(t *testing.T) {
	sender := &fakeSender{}
	timers := &timerCapture{}
	sched := NewScheduler(sender, quietLogger, WithAfterFunc(timers.afterFunc))

	_, err := sched.Schedule("user@example.com", testSummary(), "t", "2weeks")
	if !fault.Is(err, fault.Validation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if len(timers.callbacks) != 0 {
		t.Fatal("timer armed for invalid option")
	}
	if sender.calls != 0 {
		t.Fatal("send attempted for invalid option")
	}
}

func TestScheduleValidatesPayloadUpFront(t *testing.T) {
	timers := &timerCapture{}
	sched := NewScheduler(&fakeSender{}, quietLogger, WithAfterFunc(timers.afterFunc))

	_, err := sched.Schedule("not-an-email", testSummary(), "t", "5min")
	if !fault.Is(err, fault.Validation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if len(timers.callbacks) != 0 {
		t.Fatal("timer armed for invalid recipient")
	}
}

func TestFiredSendFailureIsTerminalAndObserved(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	timers := &timerCapture{}
	var observed []error
	sched := NewScheduler(sender, quietLogger,
		WithAfterFunc(timers.afterFunc),
		WithFiredObserver(func(err error) { observed = append(observed, err) }),
	)

	if _, err := sched.Schedule("user@example.com", testSummary(), "t", "5min"); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	timers.Fire(0)

	if sender.calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", sender.calls)
	}
	if len(timers.callbacks) != 1 {
		t.Fatal("failure must not re-arm a timer")
	}
	if len(observed) != 1 || observed[0] == nil {
		t.Fatalf("expected one failure observation, got %v", observed)
	}
}
