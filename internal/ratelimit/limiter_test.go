package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func newTestLimiter(opts Options) (*Limiter, *time.Time) {
	l := New(opts)
	l.Close()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestThresholdAdmittedThenRejected(t *testing.T) {
	l, _ := newTestLimiter(Options{PerSender: 3, Window: time.Minute, Block: 10 * time.Minute})

	for i := 0; i < 3; i++ {
		if d := l.Check("sender"); !d.Allowed {
			t.Fatalf("request %d within threshold rejected: %+v", i, d)
		}
	}
	d := l.Check("sender")
	if d.Allowed {
		t.Fatal("request over threshold admitted")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", d.RetryAfter)
	}
	if d.Reason != ReasonSenderLimit {
		t.Fatalf("expected sender_limit reason, got %s", d.Reason)
	}
}

func TestBlockOutlivesWindow(t *testing.T) {
	l, now := newTestLimiter(Options{PerSender: 1, Window: time.Minute, Block: 10 * time.Minute})

	l.Check("sender")
	if d := l.Check("sender"); d.Allowed {
		t.Fatal("second request should trip the limit")
	}

	// Past the window but still inside the cooldown.
	*now = now.Add(2 * time.Minute)
	d := l.Check("sender")
	if d.Allowed {
		t.Fatal("blocked sender admitted after window reset")
	}
	if d.Reason != ReasonSenderBlocked {
		t.Fatalf("expected sender_blocked, got %s", d.Reason)
	}

	// Past the cooldown: a fresh window opens.
	*now = now.Add(10 * time.Minute)
	if d := l.Check("sender"); !d.Allowed {
		t.Fatalf("sender still rejected after cooldown: %+v", d)
	}
}

func TestWindowResetsWithoutBlock(t *testing.T) {
	l, now := newTestLimiter(Options{PerSender: 2, Window: time.Minute, Block: 10 * time.Minute})

	l.Check("sender")
	l.Check("sender")
	*now = now.Add(61 * time.Second)
	if d := l.Check("sender"); !d.Allowed {
		t.Fatalf("expected fresh window after expiry, got %+v", d)
	}
}

func TestGlobalSaturationRejectsEveryone(t *testing.T) {
	l, _ := newTestLimiter(Options{PerSender: 100, Window: time.Minute, Global: 5})

	for i := 0; i < 5; i++ {
		if d := l.Check(fmt.Sprintf("sender-%d", i)); !d.Allowed {
			t.Fatalf("request %d rejected below global limit: %+v", i, d)
		}
	}
	d := l.Check("fresh-sender")
	if d.Allowed {
		t.Fatal("expected global saturation rejection")
	}
	if d.Reason != ReasonGlobalLimit {
		t.Fatalf("expected global_limit, got %s", d.Reason)
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", d.RetryAfter)
	}
}

func TestSweepEvictsExpiredUnblocked(t *testing.T) {
	l, now := newTestLimiter(Options{PerSender: 1, Window: time.Minute, Block: 10 * time.Minute})

	l.Check("expired")
	l.Check("blocked")
	l.Check("blocked") // trips the cooldown

	*now = now.Add(2 * time.Minute)
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.senders["expired"]; ok {
		t.Fatal("expired entry survived the sweep")
	}
	if _, ok := l.senders["blocked"]; !ok {
		t.Fatal("blocked entry must survive the sweep until its cooldown ends")
	}
}
