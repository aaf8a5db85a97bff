// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryWithBackoff_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("still failing")
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		return true, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("RetryWithBackoff() error = %v, want %v", err, sentinel)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetryWithBackoff_PermanentErrorStopsEarly(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("fatal")
	calls := 0
	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		return false, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("RetryWithBackoff() error = %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryWithBackoff_ContextCancelledBetweenRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, 5, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		cancel()
		return true, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RetryWithBackoff() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}
