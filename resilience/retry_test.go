package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTemporary = errors.New("temporary error")

func retryAll(error) bool { return true }

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryIf:        retryAll,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		return "segments", nil
	})
	if err != nil || result != "segments" {
		t.Fatalf("got (%q, %v)", result, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTemporary
		}
		return 42, nil
	})
	if err != nil || result != 42 {
		t.Fatalf("got (%d, %v)", result, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustedWrapsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		return "", errTemporary
	})
	if !errors.Is(err, errTemporary) {
		t.Errorf("expected errTemporary in chain, got %v", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Errorf("expected ExhaustedError with 3 attempts, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NilRetryIfFailsFast(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryIf = nil
	calls := 0
	_, err := Retry(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		return "", errTemporary
	})
	if !errors.Is(err, errTemporary) || calls != 1 {
		t.Errorf("expected one call and raw error, got %d calls, %v", calls, err)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	permanent := errors.New("malformed audio")
	cfg := fastConfig()
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := Retry(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		return "", permanent
	})
	if err != permanent {
		t.Errorf("expected the permanent error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second

	calls := 0
	_, err := Retry(ctx, cfg, func(context.Context) (string, error) {
		calls++
		cancel()
		return "", errTemporary
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var backoffs []time.Duration
	cfg := fastConfig()
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { backoffs = append(backoffs, d) }

	_ = RetryFunc(context.Background(), cfg, func(context.Context) error { return errTemporary })
	if len(backoffs) != 2 {
		t.Fatalf("expected 2 retries, got %d", len(backoffs))
	}
	if backoffs[0] != time.Millisecond || backoffs[1] != 2*time.Millisecond {
		t.Errorf("unexpected backoffs %v", backoffs)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := DefaultRetryConfig()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := cfg.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}
