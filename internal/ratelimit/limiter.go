// Package ratelimit provides fixed-window admission control for the message
// pipeline. Fixed windows are deliberate: burst tolerance is not a goal here,
// predictable worst-case behavior is.
package ratelimit

import (
	"sync"
	"time"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonSenderLimit   Reason = "sender_limit"
	ReasonSenderBlocked Reason = "sender_blocked"
	ReasonGlobalLimit   Reason = "global_limit"
)

// Decision is the outcome of a Check call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     Reason
}

type window struct {
	count        int
	resetAt      time.Time
	blockedUntil time.Time
}

// Options tune the limiter; zero values fall back to defaults.
type Options struct {
	PerSender     int           // max messages per sender per window
	Window        time.Duration // fixed counting window
	Block         time.Duration // cooldown applied once a sender exceeds the limit
	Global        int           // max messages across all senders per window
	SweepInterval time.Duration // how often expired entries are evicted
}

// Limiter maintains one fixed window per sender plus a global window.
type Limiter struct {
	mu      sync.Mutex
	senders map[string]*window
	global  window
	opts    Options
	now     func() time.Time
	done    chan struct{}
}

// New creates a Limiter and starts its eviction sweep.
func New(opts Options) *Limiter {
	if opts.PerSender <= 0 {
		opts.PerSender = 15
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Minute
	}
	if opts.Global <= 0 {
		opts.Global = 300
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	l := &Limiter{
		senders: make(map[string]*window),
		opts:    opts,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	close(l.done)
}

// Check records one request from senderID and decides whether it is admitted.
func (l *Limiter) Check(senderID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Global window first: saturation rejects regardless of per-sender state.
	if l.global.resetAt.Before(now) {
		l.global.count = 0
		l.global.resetAt = now.Add(l.opts.Window)
	}
	if l.global.count >= l.opts.Global {
		return Decision{
			Allowed:    false,
			RetryAfter: ceilDuration(l.global.resetAt.Sub(now)),
			Reason:     ReasonGlobalLimit,
		}
	}

	w, ok := l.senders[senderID]
	if !ok {
		w = &window{resetAt: now.Add(l.opts.Window)}
		l.senders[senderID] = w
	}

	if w.blockedUntil.After(now) {
		return Decision{
			Allowed:    false,
			RetryAfter: ceilDuration(w.blockedUntil.Sub(now)),
			Reason:     ReasonSenderBlocked,
		}
	}

	if w.resetAt.Before(now) {
		w.count = 0
		w.resetAt = now.Add(l.opts.Window)
	}

	if w.count >= l.opts.PerSender {
		// The cooldown outlives the window boundary on purpose.
		w.blockedUntil = now.Add(l.opts.Block)
		return Decision{
			Allowed:    false,
			RetryAfter: ceilDuration(l.opts.Block),
			Reason:     ReasonSenderLimit,
		}
	}

	w.count++
	l.global.count++
	return Decision{Allowed: true}
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep evicts expired, unblocked entries to bound memory.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.senders {
		if w.resetAt.Before(now) && !w.blockedUntil.After(now) {
			delete(l.senders, id)
		}
	}
}

func ceilDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}
