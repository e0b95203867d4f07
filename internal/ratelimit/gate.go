// Package ratelimit implements fixed-window admission control per client
// and operation class, plus the HTTP middleware that enforces it. Counting
// is fixed-window rather than sliding-log: memory stays bounded at one
// entry per active client, at the cost of allowing up to 2x quota bursts
// across a window boundary.
package ratelimit

import (
	"sync"
	"time"
)

// Class identifies one independently limited group of operations.
type Class string

const (
	// ClassGeneral covers all API traffic.
	ClassGeneral Class = "general"

	// ClassUpload covers upload-triggering operations (transcription).
	ClassUpload Class = "upload"

	// ClassEmail covers email-send operations.
	ClassEmail Class = "email"
)

// Limit is the quota for one class: at most Max admitted requests per
// client within each Window.
type Limit struct {
	Max    int
	Window time.Duration
	// Message is the user-facing rejection text returned on denial.
	Message string
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Remaining is the number of requests left in the current window.
	Remaining int
	// RetryAfter is how long until the current window expires. Only
	// meaningful on denial.
	RetryAfter time.Duration
	// Message carries the class rejection text on denial.
	Message string
}

type windowState struct {
	count   int
	resetAt time.Time
}

type key struct {
	client string
	class  Class
}

// Gate performs admission control. Counter state is owned by the Gate and
// guarded by a mutex; it is safe for concurrent use.
type Gate struct {
	limits map[Class]Limit
	now    func() time.Time

	mu      sync.Mutex
	windows map[key]windowState
}

type Option func(*Gate)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(limits map[Class]Limit, opts ...Option) *Gate {
	g := &Gate{
		limits:  limits,
		now:     time.Now,
		windows: make(map[key]windowState),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Admit checks whether client may perform another operation of the given
// class, incrementing the window counter when it may. Unknown classes are
// always admitted.
func (g *Gate) Admit(client string, class Class) Decision {
	limit, ok := g.limits[class]
	if !ok || limit.Max <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}

	now := g.now()
	k := key{client: client, class: class}

	g.mu.Lock()
	defer g.mu.Unlock()

	state, exists := g.windows[k]
	if !exists || !now.Before(state.resetAt) {
		state = windowState{count: 0, resetAt: now.Add(limit.Window)}
	}

	if state.count >= limit.Max {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: state.resetAt.Sub(now),
			Message:    limit.Message,
		}
	}

	state.count++
	g.windows[k] = state
	return Decision{Allowed: true, Remaining: limit.Max - state.count}
}

// Prune drops expired windows so idle clients do not accumulate. Called
// opportunistically by the middleware; harmless to skip.
func (g *Gate) Prune() {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, state := range g.windows {
		if !now.Before(state.resetAt) {
			delete(g.windows, k)
		}
	}
}
