// Package corr mints correlation ids, sanitizes fault/log strings, and
// throttles repetitive warnings using a uuid-plus-limiter idiom for
// request tracing and rate-limited logging.
package corr

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	maxFaultLen = 512
	maxLogLen   = 1024
)

// New mints a fresh correlation id.
func New() string {
	return uuid.New().String()
}

// SanitizeFault strips control characters, validates UTF-8, and caps
// length at 512 runes for SOAP Fault strings.
func SanitizeFault(s string) string {
	return sanitize(s, maxFaultLen)
}

// SanitizeLog caps length at 1024 runes for log messages.
func SanitizeLog(s string) string {
	return sanitize(s, maxLogLen)
}

func sanitize(s string, max int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	if utf8.RuneCountInString(out) <= max {
		return out
	}

	const suffix = "...(truncated)"
	runes := []rune(out)
	cut := max - utf8.RuneCountInString(suffix)
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}

// Throttle emits a callback at most once per interval per key, used to
// stop repeated warnings (buffer-pool utilization) from flooding the
// log.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewThrottle creates a Throttle allowing one event per key per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Allow reports whether an event for key may fire now, consuming the
// key's token if so.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[key] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}
