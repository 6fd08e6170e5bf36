package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func quickRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeBusy,
		},
	}
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetry_RetriesTransientError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return NewStorageError("op", errors.New("locked"), ErrCodeBusy)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickRetryConfig(), func() error {
		calls++
		return NewStorageError("op", errors.New("bad input"), ErrCodeValidation)
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Non-retryable error should not be retried, got %d calls", calls)
	}
	if !IsValidation(err) {
		t.Errorf("Original error should be returned untouched, got %v", err)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickRetryConfig(), func() error {
		calls++
		return NewStorageError("op", errors.New("still busy"), ErrCodeBusy)
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestWithRetry_PlainErrorsNotRetried(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickRetryConfig(), func() error {
		calls++
		return errors.New("unclassified")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Unclassified errors should not be retried, got %d calls", calls)
	}
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := quickRetryConfig()
	config.InitialDelay = 50 * time.Millisecond
	config.MaxDelay = 50 * time.Millisecond

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, config, func() error {
		calls++
		return NewStorageError("op", errors.New("busy"), ErrCodeBusy)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCalculateDelay_Backoff(t *testing.T) {
	config := &RetryConfig{
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        false,
	}

	if d := calculateDelay(0, config); d != 10*time.Millisecond {
		t.Errorf("attempt 0: expected 10ms, got %v", d)
	}
	if d := calculateDelay(1, config); d != 20*time.Millisecond {
		t.Errorf("attempt 1: expected 20ms, got %v", d)
	}
	if d := calculateDelay(2, config); d != 40*time.Millisecond {
		t.Errorf("attempt 2: expected 40ms, got %v", d)
	}

	// Capped by MaxDelay
	if d := calculateDelay(20, config); d != time.Second {
		t.Errorf("large attempt: expected cap at 1s, got %v", d)
	}
}
