package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hupe1980/geocluster/core"
)

const (
	// DefaultMaxDelay caps the exponential part of a backoff.
	DefaultMaxDelay = 10 * time.Second

	// DefaultMaxJitter is the exclusive upper bound of the random jitter.
	DefaultMaxJitter = 250 * time.Millisecond

	// DefaultMaxAttempts bounds attempts per call site.
	DefaultMaxAttempts = 5
)

// ErrGaveUp is returned by Do when every attempt was rate limited. It is a
// soft outcome: the caller should treat the result as empty, not as failed.
var ErrGaveUp = errors.New("retry: gave up after rate limiting")

// Policy computes backoff delays and decides whether an error is retryable.
//
// The zero value is usable: missing fields fall back to the defaults above.
// Jitter and Sleep exist so tests can run without wall-clock delays.
type Policy struct {
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps BaseDelay * 2^(attempt-1). Default 10s.
	MaxDelay time.Duration

	// MaxJitter bounds the random jitter added to each delay. Default 250ms.
	// A negative value disables jitter.
	MaxJitter time.Duration

	// MaxAttempts is the number of attempts per call site. Default 5.
	MaxAttempts int

	// Jitter returns a value in [0, max). Defaults to math/rand.
	Jitter func(max time.Duration) time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before every backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p Policy) withDefaults() Policy {
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxJitter == 0 {
		p.MaxJitter = DefaultMaxJitter
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Jitter == nil {
		p.Jitter = randomJitter
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

// BaseBackoff returns min(BaseDelay * 2^(attempt-1), MaxDelay) without jitter.
// attempt is 1-based; values below 1 are treated as 1.
func (p Policy) BaseBackoff(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift >= 62 || p.BaseDelay > p.MaxDelay>>uint(shift) {
		return p.MaxDelay
	}
	return min(p.BaseDelay<<uint(shift), p.MaxDelay)
}

// Backoff returns BaseBackoff(attempt) plus jitter in [0, MaxJitter).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	d := p.BaseBackoff(attempt)
	if p.MaxJitter > 0 {
		d += p.Jitter(p.MaxJitter)
	}
	return d
}

// ShouldRetry reports whether another attempt should follow the given failed
// attempt (1-based). Rate-limit errors are always retryable.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	p = p.withDefaults()
	return attempt < p.MaxAttempts
}

// Do calls fn until it succeeds, the error is no longer retryable, or ctx is
// done. fn receives the 1-based attempt number.
//
// A non-rate-limit error is returned once MaxAttempts attempts failed.
// Rate-limit errors never fail the call: when MaxAttempts is exhausted on a
// rate-limit error Do returns the zero value and an error wrapping both
// ErrGaveUp and the last rate-limit error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		rateLimited := IsRateLimited(err)
		if attempt >= p.MaxAttempts {
			if rateLimited {
				return zero, fmt.Errorf("%w: %w", ErrGaveUp, err)
			}
			return zero, err
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// statusCoder is implemented by errors that carry an HTTP-like status.
type statusCoder interface {
	StatusCode() int
}

// IsRateLimited reports whether err signals upstream rate limiting: it wraps
// core.ErrRateLimited or carries status 429.
//
// Errors without a status fall back to their message, which must contain
// "too many requests" or "http 429" as a phrase. Bare digits never count,
// since messages carry offsets, URLs and response bodies.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrRateLimited) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode() == 429
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") || containsToken(msg, "http 429")
}

// containsToken reports whether tok occurs in s not followed by a digit.
func containsToken(s, tok string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], tok)
		if j < 0 {
			return false
		}
		end := i + j + len(tok)
		if end == len(s) || s[end] < '0' || s[end] > '9' {
			return true
		}
		i = end
	}
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
