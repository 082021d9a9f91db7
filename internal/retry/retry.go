// Package retry provides the shared retry policy used by the lister, the
// transfer executor, and the reporter. It implements bounded exponential
// backoff with jitter, and classifies errors as transient or permanent so
// that permission and validation failures are never retried.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

// Policy describes a bounded retry strategy. The zero value is not usable;
// construct with Default or from handler configuration.
//
// All fields are immutable after construction, so a Policy is safe to share
// across goroutines.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles per attempt
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
}

// Default returns the policy used when the handler configuration does not
// override it: 3 attempts, 200ms base delay, 5s cap.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs op, retrying on transient errors until the attempt budget is
// exhausted or the context is cancelled. The last error is returned
// unwrapped so callers can tag it with their own sentinel.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// delay computes the backoff for the given attempt number with ±25% jitter
// to avoid synchronized retries across workers.
func (p Policy) delay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * p.BaseDelay

	jitterRange := int64(float64(d) * 0.25)
	if jitterRange > 0 {
		d += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retryable reports whether an error is worth retrying. Permission and
// validation failures are permanent; cancelled contexts are not retried;
// everything else (throttling, network blips, 5xx) is treated as transient
// because the attempt budget is small and bounded.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied",
			"AccessDeniedException",
			"InvalidAccessKeyId",
			"SignatureDoesNotMatch",
			"NoSuchBucket",
			"InvalidParameterException",
			"ValidationException",
			"InvalidJobStateException",
			"JobNotFoundException":
			return false
		case "ThrottlingException",
			"RequestLimitExceeded",
			"SlowDown",
			"TooManyRequestsException",
			"InternalError",
			"ServiceUnavailable":
			return true
		}
	}

	return true
}
