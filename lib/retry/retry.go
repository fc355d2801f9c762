package retry

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/retry")

// Policy is the immutable configuration for one retried call.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultPolicy matches the conservative defaults used for slow upstream
// connections: two retries, 2s initial delay, 1.5x backoff.
var DefaultPolicy = Policy{
	MaxRetries:    2,
	InitialDelay:  2 * time.Second,
	BackoffFactor: 1.5,
}

type options struct {
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*options)

// WithSleep replaces the delay function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
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

// Do runs op with exponential backoff: up to policy.MaxRetries retries, the
// delay multiplied by policy.BackoffFactor after each failure. It returns
// nil on the first success and the last operation error once retries are
// exhausted.
func Do(ctx context.Context, policy Policy, op func() error, opts ...Option) error {
	return DoIf(ctx, policy, func(error) bool { return true }, op, opts...)
}

// DoIf is Do conditioned on error classification: when cond(err) is false
// the error is returned immediately without further attempts. It is used to
// distinguish connection-class failures, worth retrying, from definitive
// ones that are not.
func DoIf(ctx context.Context, policy Policy, cond func(error) bool, op func() error, opts ...Option) error {
	o := options{sleep: sleepContext}
	for _, apply := range opts {
		apply(&o)
	}

	ctx, span := tracer.Start(ctx, "retry:Do")
	defer span.End()

	delay := policy.InitialDelay
	var last error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		last = op()
		if last == nil {
			if attempt > 0 {
				span.SetAttributes(attribute.Int("attempts", attempt+1))
			}
			return nil
		}
		if !cond(last) {
			span.RecordError(last)
			span.SetStatus(codes.Error, "error not retryable")
			return last
		}
		if attempt == policy.MaxRetries {
			break
		}
		slog.Warn("operation failed, retrying",
			"attempt", attempt+1, "max_retries", policy.MaxRetries, "delay", delay, "err", last)
		if err := o.sleep(ctx, delay); err != nil {
			span.RecordError(err)
			return err
		}
		delay = time.Duration(float64(delay) * policy.BackoffFactor)
	}

	span.RecordError(last)
	span.SetStatus(codes.Error, "retries exhausted")
	return last
}

var connectionKeywords = []string{
	"timeout",
	"timed out",
	"connection",
	"network",
	"refused",
	"unreachable",
	"not available",
}

// IsConnectionError reports whether err looks like a transient
// connectivity failure rather than a definitive one.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range connectionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
