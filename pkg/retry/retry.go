// Package retry provides the single failure-recovery primitive used
// throughout farescout: a bounded re-invocation loop with a fixed
// delay between attempts. No other component defines its own retry
// loop.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Defaults for the retry policy.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// Policy configures how Do re-invokes an operation.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the
	// first one. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Delay is the fixed sleep between attempts. Zero means
	// DefaultDelay.
	Delay time.Duration

	// Log, when set, records each failed attempt before retrying.
	Log *zap.Logger
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	return p
}

// sleep is swapped out in tests to count delays without waiting.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do invokes op until it returns nil, the attempt budget is spent, or
// op returns a fatal error. The last error is returned after the
// final attempt; fatal errors are returned immediately without
// further attempts. The delay between attempts honors context
// cancellation.
func Do(ctx context.Context, p Policy, name string, op func(context.Context) error) error {
	p = p.withDefaults()

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		last = op(ctx)
		if last == nil {
			return nil
		}
		if IsFatal(last) {
			return last
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.Log != nil {
			p.Log.Warn("operation failed, retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Error(last))
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return last
}

// fatalError marks an error as not worth retrying.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps err so Do stops immediately instead of burning the
// remaining attempts. errors.Is and errors.As still see the wrapped
// error. Fatal of nil is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal anywhere in its
// chain.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
