package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block until the context times out
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	notFound := &domain.ErrNotFound{Resource: "ledger", ID: "c1"}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return resilience.Permanent(notFound)
	})

	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
	if err != notFound {
		t.Errorf("expected the unwrapped error, got %v", err)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	calls := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestCall_MapsErrors(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 0}

	t.Run("external failure", func(t *testing.T) {
		cb := resilience.NewCircuitBreaker("test-ext")
		err := resilience.Call(context.Background(), cb, cfg, "ledger-api", func() error {
			return errors.New("connection refused")
		})
		var ext *domain.ErrExternalService
		if !errors.As(err, &ext) || ext.Service != "ledger-api" {
			t.Fatalf("expected ErrExternalService, got %v", err)
		}
	})

	t.Run("not found passes through", func(t *testing.T) {
		cb := resilience.NewCircuitBreaker("test-nf")
		err := resilience.Call(context.Background(), cb, cfg, "ledger-api", func() error {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "ledger", ID: "x"})
		})
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("open breaker", func(t *testing.T) {
		cb := resilience.NewCircuitBreaker("test-open")
		for i := 0; i < 5; i++ {
			_ = resilience.Call(context.Background(), cb, cfg, "ledger-api", func() error {
				return errors.New("down")
			})
		}
		if cb.State() != gobreaker.StateOpen {
			t.Fatalf("expected open breaker, got %s", cb.State())
		}

		err := resilience.Call(context.Background(), cb, cfg, "ledger-api", func() error { return nil })
		var open *domain.ErrCircuitOpen
		if !errors.As(err, &open) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("not found does not trip", func(t *testing.T) {
		cb := resilience.NewCircuitBreaker("test-nf-trip")
		for i := 0; i < 10; i++ {
			_ = resilience.Call(context.Background(), cb, cfg, "ledger-api", func() error {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "ledger", ID: "x"})
			})
		}
		if cb.State() != gobreaker.StateClosed {
			t.Errorf("expected closed breaker, got %s", cb.State())
		}
	})
}
