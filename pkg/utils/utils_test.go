package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("store unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Retry(context.Background(), RetryPolicy{
		Attempts:     5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, permanent) },
	}, func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 2, InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected exhausted retry after 2 attempts, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicy_BackoffDoublesAndCaps(t *testing.T) {
	p := RetryPolicy{Attempts: 5, InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	if got := p.Backoff(1); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
	if got := p.Backoff(2); got != 2*time.Second {
		t.Fatalf("expected 2s, got %s", got)
	}
	if got := p.Backoff(3); got != 3*time.Second {
		t.Fatalf("expected cap 3s, got %s", got)
	}
}

func TestIsTransientPostgresError(t *testing.T) {
	if !IsTransientPostgresError(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be transient")
	}
	if IsTransientPostgresError(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected unique violation to be permanent")
	}
	if IsTransientPostgresError(errors.New("plain")) {
		t.Fatalf("expected non-pg error to be permanent")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("expected wrapped unique violation to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure not to match")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if c.PoolSize != 20 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.options().Addr != "localhost:6379" || c.options().ClientName != "voice-platform" {
		t.Fatalf("expected addr and client name carried into options")
	}
}

func TestNewSID(t *testing.T) {
	a, b := NewSID("CA"), NewSID("CA")
	if len(a) != 34 || a[:2] != "CA" {
		t.Fatalf("unexpected sid %q", a)
	}
	if a == b {
		t.Fatalf("expected unique sids")
	}
}

func TestNewSecret(t *testing.T) {
	s := NewSecret()
	if len(s) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(s))
	}
	if s == NewSecret() {
		t.Fatalf("expected unique secrets")
	}
}
