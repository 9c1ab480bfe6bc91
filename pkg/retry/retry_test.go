package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestNew_FillsZeroValues(t *testing.T) {
	r := New(&Config{})

	if r.config.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 200ms", r.config.InitialInterval)
	}
	if r.config.MaxInterval != 5*time.Second {
		t.Errorf("MaxInterval = %v, want 5s", r.config.MaxInterval)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
}

func TestNew_DoesNotMutateCallerConfig(t *testing.T) {
	cfg := &Config{JitterFactor: 5}
	New(cfg)
	if cfg.JitterFactor != 5 {
		t.Errorf("caller config was modified: JitterFactor = %f", cfg.JitterFactor)
	}
}

func TestRetrier_Do_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetrier_Do_MaxRetriesExceeded(t *testing.T) {
	cause := errors.New("broker unavailable")
	result := New(fastConfig(2)).Do(context.Background(), func(ctx context.Context) error {
		return cause
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if result.LastError != cause {
		t.Errorf("LastError = %v, want %v", result.LastError, cause)
	}
}

func TestRetrier_Do_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("invalid payload")
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(cause)
	})

	if result.Err != cause {
		t.Errorf("Err = %v, want %v", result.Err, cause)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetrier_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.InitialInterval = time.Second
	cfg.MaxInterval = time.Second

	attempts := 0
	result := New(cfg).Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("fail")
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("Err = %v, want ErrContextCanceled", result.Err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetrier_DoWithCallback(t *testing.T) {
	var seen []int
	New(fastConfig(2)).DoWithCallback(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	}, func(attempt int, err error, next time.Duration) {
		seen = append(seen, attempt)
	})

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("callback attempts = %v, want [1 2]", seen)
	}
}

func TestRetrier_IntervalCapped(t *testing.T) {
	r := New(&Config{InitialInterval: time.Second, MaxInterval: 3 * time.Second, Multiplier: 2})

	if got := r.interval(0); got != time.Second {
		t.Errorf("interval(0) = %v, want 1s", got)
	}
	if got := r.interval(1); got != 2*time.Second {
		t.Errorf("interval(1) = %v, want 2s", got)
	}
	if got := r.interval(5); got != 3*time.Second {
		t.Errorf("interval(5) = %v, want 3s", got)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
