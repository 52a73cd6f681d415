package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetry is a policy with negligible delays so tests stay quick.
func fastRetry(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want ok after 1", got, calls)
	}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewAdapterError(KindRateLimited, "x", "throttled", nil)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, NewAdapterError(KindUnconfigured, "x", "no key", nil)
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should not retry, got %d calls", calls)
	}
	if KindOf(err) != KindUnconfigured {
		t.Errorf("expected unconfigured, got %s", KindOf(err))
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, NewAdapterError(KindTimeout, "x", "slow", nil)
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	// Initial call plus two retries.
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 10, MaxDelay: 10, BackoffMultiplier: 1}
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
			calls++
			return 0, NewAdapterError(KindUnknown, "x", "flaky", nil)
		})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if KindOf(err) != KindTimeout {
			t.Errorf("expected timeout kind on cancellation, got %s", KindOf(err))
		}
		if calls != 1 {
			t.Errorf("expected 1 call before cancellation, got %d", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetryOnRetryCallback(t *testing.T) {
	var attempts []int
	policy := fastRetry(2)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		return 0, NewAdapterError(KindRateLimited, "x", "throttled", nil)
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected callbacks for attempts [1 2], got %v", attempts)
	}
}

func TestDelayBackoffAndCap(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1, MaxDelay: 4, BackoffMultiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 4 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayJitterStaysInRange(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 2, MaxDelay: 30, BackoffMultiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		d := policy.Delay(0)
		if d < 1*time.Second || d > 3*time.Second {
			t.Fatalf("jittered delay %v outside [1s, 3s]", d)
		}
	}
}

func TestRetryZeroRetriesReturnsFirstError(t *testing.T) {
	want := errors.New("boom")
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{}, func(ctx context.Context) (int, error) {
		calls++
		return 0, want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}
