package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test backoff negligible.
func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &smithy.GenericAPIError{Code: "SlowDown", Message: "slow down"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}

	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, permanent)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := errors.New("connection reset")

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, transient)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	policy := Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}
	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context cancelled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"bad credentials", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, false},
		{"missing bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, false},
		{"invalid job state", &smithy.GenericAPIError{Code: "InvalidJobStateException"}, false},
		{"job not found", &smithy.GenericAPIError{Code: "JobNotFoundException"}, false},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, true},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, true},
		{"internal error", &smithy.GenericAPIError{Code: "InternalError"}, true},
		{"unknown api error", &smithy.GenericAPIError{Code: "SomethingNew"}, true},
		{"plain network error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestDelay_GrowsAndCaps(t *testing.T) {
	t.Parallel()

	policy := Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
	}

	// Jitter is ±25%, so attempt 1 stays within [75ms, 125ms].
	d1 := policy.delay(1)
	assert.GreaterOrEqual(t, d1, 75*time.Millisecond)
	assert.LessOrEqual(t, d1, 125*time.Millisecond)

	// Attempt 2 doubles: [150ms, 250ms].
	d2 := policy.delay(2)
	assert.GreaterOrEqual(t, d2, 150*time.Millisecond)
	assert.LessOrEqual(t, d2, 250*time.Millisecond)

	// Deep attempts hit the cap.
	assert.Equal(t, time.Second, policy.delay(8))
}
