package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/ratelimit")

// ThrottleCooldown is how long to back off when the server itself reports
// a throttle, regardless of what the local window says.
const ThrottleCooldown = time.Minute

// Registry enforces a rolling-window call budget per operation key. It is
// constructed once at process start and injected wherever calls must be
// throttled; there is no package-level state.
type Registry struct {
	mu      sync.Mutex
	windows map[string]*window

	// overridable in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Each key gets its own lock so one key's cool-down never serializes
// callers of an unrelated key.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		windows: make(map[string]*window),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Registry) window(key string) *window {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[key]
	if !ok {
		w = &window{}
		r.windows[key] = w
	}
	return w
}

func (w *window) purge(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Guard runs op under key's rolling-window budget: at most maxCalls
// invocations within any windowDur-wide trailing interval. When the window
// is full it blocks until the oldest recorded call falls out of it.
//
// If op fails with a server-side throttle error it sleeps ThrottleCooldown
// and retries op exactly once; every other error propagates unchanged.
func (r *Registry) Guard(ctx context.Context, key string, maxCalls int, windowDur time.Duration, op func() error) error {
	ctx, span := tracer.Start(ctx, "ratelimit:Guard")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	w := r.window(key)

	w.mu.Lock()
	now := r.now()
	w.purge(now.Add(-windowDur))

	if len(w.stamps) >= maxCalls {
		wait := w.stamps[0].Add(windowDur).Sub(now)
		if wait > 0 {
			slog.Warn("rate limit window full, waiting",
				"key", key, "calls", len(w.stamps), "max", maxCalls, "wait", wait)
			span.AddEvent("window full")
			if err := r.sleep(ctx, wait); err != nil {
				w.mu.Unlock()
				span.RecordError(err)
				span.SetStatus(codes.Error, "wait interrupted")
				return err
			}
			now = r.now()
			w.purge(now.Add(-windowDur))
		}
	}
	w.stamps = append(w.stamps, now)
	w.mu.Unlock()

	err := op()
	if err == nil {
		return nil
	}
	if !IsThrottleError(err) {
		return err
	}

	// the server is throttling us independently of our own bookkeeping,
	// cool down and try once more
	slog.Warn("server-side throttle detected, cooling down",
		"key", key, "cooldown", ThrottleCooldown, "err", err)
	span.AddEvent("server-side throttle")
	if serr := r.sleep(ctx, ThrottleCooldown); serr != nil {
		span.RecordError(serr)
		return serr
	}
	if err := op(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retry after cooldown failed")
		return err
	}
	return nil
}

// IsThrottleError reports whether err looks like a server-side rate limit
// response rather than a local failure.
func IsThrottleError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"rate limit", "too many requests", "429"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
