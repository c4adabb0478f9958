package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const callerIdleTTL = 10 * time.Minute

// callerWindow tracks one caller's request count inside the current window.
type callerWindow struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// surfaceLimiter applies a fixed window per caller IP, the same counting
// scheme the message pipeline uses per sender.
type surfaceLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	window  time.Duration
}

func newSurfaceLimiter(rate float64, burst int) *surfaceLimiter {
	if burst < 1 {
		burst = 1
	}
	window := time.Second
	if rate > 0 {
		window = time.Duration(float64(burst) / rate * float64(time.Second))
	}
	sl := &surfaceLimiter{
		callers: make(map[string]*callerWindow),
		limit:   burst,
		window:  window,
	}
	go sl.evictIdle()
	return sl
}

// allow reports whether the caller may proceed. When denied it also returns
// how long until the current window rolls over.
func (sl *surfaceLimiter) allow(caller string) (bool, time.Duration) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := time.Now()
	cw, ok := sl.callers[caller]
	if !ok {
		cw = &callerWindow{windowStart: now}
		sl.callers[caller] = cw
	}
	if now.Sub(cw.windowStart) >= sl.window {
		cw.windowStart = now
		cw.count = 0
	}
	cw.lastSeen = now

	if cw.count >= sl.limit {
		return false, sl.window - now.Sub(cw.windowStart)
	}
	cw.count++
	return true, 0
}

func (sl *surfaceLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		sl.mu.Lock()
		cutoff := time.Now().Add(-callerIdleTTL)
		for caller, cw := range sl.callers {
			if cw.lastSeen.Before(cutoff) {
				delete(sl.callers, caller)
			}
		}
		sl.mu.Unlock()
	}
}

func callerIP(r *http.Request) string {
	// chi's RealIP middleware runs first and sets X-Real-Ip.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware rejecting callers that exceed rate requests
// per second, with bursts up to burst, as 429 Too Many Requests.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newSurfaceLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := limiter.allow(callerIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
