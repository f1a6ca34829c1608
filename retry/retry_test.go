package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/geocluster/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type bodyErr struct {
	code int
	body string
}

func (e bodyErr) Error() string   { return fmt.Sprintf("HTTP %d: %s", e.code, e.body) }
func (e bodyErr) StatusCode() int { return e.code }

// recorder captures backoff sleeps instead of waiting.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func noJitter(time.Duration) time.Duration { return 0 }

func TestPolicy_BaseBackoff(t *testing.T) {
	p := Policy{BaseDelay: 800 * time.Millisecond}

	assert.Equal(t, 800*time.Millisecond, p.BaseBackoff(0))
	assert.Equal(t, 800*time.Millisecond, p.BaseBackoff(1))
	assert.Equal(t, 1600*time.Millisecond, p.BaseBackoff(2))
	assert.Equal(t, 3200*time.Millisecond, p.BaseBackoff(3))
	assert.Equal(t, 6400*time.Millisecond, p.BaseBackoff(4))
	assert.Equal(t, 10*time.Second, p.BaseBackoff(5))
	assert.Equal(t, 10*time.Second, p.BaseBackoff(80))

	assert.Equal(t, time.Duration(0), Policy{}.BaseBackoff(3))
}

func TestPolicy_BackoffJitterBounds(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond}
	for i := 0; i < 200; i++ {
		d := p.Backoff(2)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.Less(t, d, 200*time.Millisecond+DefaultMaxJitter)
	}

	p.MaxJitter = -1
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
}

func TestPolicy_ShouldRetry(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	plain := errors.New("connection reset")

	assert.False(t, p.ShouldRetry(nil, 1))
	assert.True(t, p.ShouldRetry(plain, 1))
	assert.True(t, p.ShouldRetry(plain, 2))
	assert.False(t, p.ShouldRetry(plain, 3))

	// Rate limiting ignores the attempt budget.
	assert.True(t, p.ShouldRetry(statusErr(429), 3))
	assert.True(t, p.ShouldRetry(statusErr(429), 100))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(statusErr(429)))
	assert.True(t, IsRateLimited(fmt.Errorf("page 3: %w", statusErr(429))))
	assert.True(t, IsRateLimited(fmt.Errorf("wrap: %w", core.ErrRateLimited)))
	assert.True(t, IsRateLimited(errors.New("HTTP 429")))
	assert.True(t, IsRateLimited(errors.New("Too Many Requests")))

	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsRateLimited(statusErr(500)))
	assert.False(t, IsRateLimited(errors.New("timeout")))
}

func TestIsRateLimited_IgnoresDigitsInMessages(t *testing.T) {
	decodeErr := fmt.Errorf("geodb: decode page at offset %d: %w", 4290, errors.New("unexpected EOF"))
	dialErr := fmt.Errorf("geodb: %w: %w", core.ErrTransientNetwork,
		errors.New(`Get "https://api.example/v1/geo/cities?limit=10&offset=4290": dial tcp: connection refused`))

	assert.False(t, IsRateLimited(decodeErr))
	assert.False(t, IsRateLimited(dialErr))
	assert.False(t, IsRateLimited(errors.New("HTTP 4290")))

	// A status wins over whatever the body says.
	assert.False(t, IsRateLimited(bodyErr{code: 400, body: `{"id": 94291, "message": "too many requests"}`}))
	assert.True(t, IsRateLimited(bodyErr{code: 429, body: "slow down"}))
}

func TestDo_DecodeErrorAtRateLimitLikeOffsetSurfaces(t *testing.T) {
	rec := &recorder{}
	p := Policy{BaseDelay: time.Millisecond, MaxAttempts: 3, Jitter: noJitter, Sleep: rec.sleep}
	decodeErr := fmt.Errorf("geodb: decode page at offset %d: %w", 4290, errors.New("unexpected EOF"))

	attempts := 0
	_, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		attempts++
		return 0, decodeErr
	})
	assert.ErrorIs(t, err, decodeErr)
	assert.NotErrorIs(t, err, ErrGaveUp)
	assert.Equal(t, 3, attempts)
}

func TestDo_RateLimitedThenSuccess(t *testing.T) {
	rec := &recorder{}
	p := Policy{BaseDelay: 800 * time.Millisecond, Jitter: noJitter, Sleep: rec.sleep}

	attempts := 0
	got, err := Do(context.Background(), p, func(_ context.Context, attempt int) ([]int, error) {
		attempts++
		assert.Equal(t, attempts, attempt)
		if attempt <= 3 {
			return nil, statusErr(429)
		}
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 4, attempts)

	require.Len(t, rec.delays, 3)
	for i := 1; i < len(rec.delays); i++ {
		assert.Greater(t, rec.delays[i], rec.delays[i-1])
	}
	for _, d := range rec.delays {
		assert.LessOrEqual(t, d, DefaultMaxDelay)
	}
}

func TestDo_NonRateLimitedExhausts(t *testing.T) {
	rec := &recorder{}
	p := Policy{BaseDelay: time.Millisecond, MaxAttempts: 3, Jitter: noJitter, Sleep: rec.sleep}
	boom := errors.New("boom")

	attempts := 0
	_, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		attempts++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Len(t, rec.delays, 2)
}

func TestDo_RateLimitedExhaustedGivesUp(t *testing.T) {
	rec := &recorder{}
	p := Policy{BaseDelay: time.Millisecond, MaxAttempts: 4, Jitter: noJitter, Sleep: rec.sleep}

	var calls []int
	got, err := Do(context.Background(), p, func(_ context.Context, attempt int) ([]string, error) {
		calls = append(calls, attempt)
		return []string{"ignored"}, statusErr(429)
	})
	require.ErrorIs(t, err, ErrGaveUp)
	assert.True(t, IsRateLimited(err))
	assert.Nil(t, got)
	assert.Equal(t, []int{1, 2, 3, 4}, calls)
}

func TestDo_OnRetry(t *testing.T) {
	var seen []int
	p := Policy{
		BaseDelay: time.Millisecond,
		Jitter:    noJitter,
		Sleep:     (&recorder{}).sleep,
		OnRetry:   func(attempt int, _ time.Duration, _ error) { seen = append(seen, attempt) },
	}
	_, err := Do(context.Background(), p, func(_ context.Context, attempt int) (int, error) {
		if attempt < 3 {
			return 0, errors.New("flaky")
		}
		return attempt, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{BaseDelay: time.Hour, MaxJitter: -1}

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(context.Context, int) (int, error) {
			return 0, statusErr(429)
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not observe cancellation")
	}
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
