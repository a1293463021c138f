package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:      maxAttempts,
		InitialBackoff:   time.Millisecond,
		RateLimitBackoff: time.Millisecond,
	}
}

func alwaysRetry(error) Action { return Retry }

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), quickPolicy(3), alwaysRetry, func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), quickPolicy(5), alwaysRetry, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cause := errors.New("bad input")
	calls := 0
	_, err := Do(context.Background(), quickPolicy(5), func(error) Action { return Stop }, func() (int, error) {
		calls++
		return 0, cause
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.ErrorIs(t, err, cause)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), quickPolicy(3), alwaysRetry, func() (int, error) {
		calls++
		return 0, errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := quickPolicy(3)
	p.InitialBackoff = time.Minute
	_, err := Do(ctx, p, alwaysRetry, func() (int, error) {
		return 0, errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoVoid(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), quickPolicy(2), alwaysRetry, func() error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestOnRetryCallback(t *testing.T) {
	var attempts []int
	p := quickPolicy(3)
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		attempts = append(attempts, attempt)
	}
	_, _ = Do(context.Background(), p, alwaysRetry, func() (int, error) {
		return 0, errors.New("transient")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}
