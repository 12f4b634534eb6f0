package lifecycle

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"voice-platform/internal/calls"
	"voice-platform/internal/phone"
	"voice-platform/internal/pricing"
	"voice-platform/internal/telephony"
	"voice-platform/pkg/utils"
)

func newService(t *testing.T, d telephony.Dialer) (*calls.Service, *Scheduler) {
	t.Helper()
	pricer := pricing.NewService(phone.DefaultResolver(), pricing.DefaultRateTable())
	svc := calls.NewService(calls.NewMemoryStore(), pricer, calls.WithRetryPolicy(utils.RetryPolicy{Attempts: 1}))
	s := NewScheduler(svc, d)
	svc.SetLauncher(s)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return svc, s
}

func waitFor(t *testing.T, svc *calls.Service, acct, id string, cond func(calls.Call) bool) calls.Call {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c, err := svc.GetCall(context.Background(), acct, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if cond(c) {
			return c
		}
		time.Sleep(5 * time.Millisecond)
	}
	c, _ := svc.GetCall(context.Background(), acct, id)
	t.Fatalf("condition not met, last status %s", c.Status)
	return calls.Call{}
}

func simulator(t *testing.T, ring, answer, complete time.Duration) *telephony.Simulator {
	t.Helper()
	s, err := telephony.NewSimulator(telephony.SimulatorConfig{
		RingDelay:     ring,
		AnswerDelay:   answer,
		CompleteDelay: complete,
		MinDuration:   30 * time.Second,
		MaxDuration:   330 * time.Second,
	}, telephony.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	return s
}

func TestScheduler_SimulatedCallCompletes(t *testing.T) {
	svc, s := newService(t, simulator(t, time.Millisecond, time.Millisecond, time.Millisecond))

	c, err := svc.CreateCall(context.Background(), "AC1", "+2348012345678", "+2348098765432", calls.CreateOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != calls.StatusQueued {
		t.Fatalf("expected create to return queued, got %s", c.Status)
	}

	done := waitFor(t, svc, "AC1", c.CallID, func(c calls.Call) bool { return c.Status.IsTerminal() })
	if done.Status != calls.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	d := *done.DurationSeconds
	if d < 30 || d >= 330 {
		t.Fatalf("expected simulated duration in range, got %d", d)
	}
	if got := int(done.EndTime.Sub(*done.StartTime) / time.Second); got != d {
		t.Fatalf("expected end-start to equal duration, got %d vs %d", got, d)
	}
	if !done.Price.Equal(pricing.Price(d, done.RatePerMinute)) {
		t.Fatalf("unexpected price %s for %ds", done.Price, d)
	}

	deadline := time.Now().Add(time.Second)
	for s.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.Active() != 0 {
		t.Fatalf("expected task to exit after terminal status")
	}
}

func TestScheduler_ExplicitTerminationWins(t *testing.T) {
	svc, s := newService(t, simulator(t, time.Millisecond, time.Millisecond, time.Hour))
	ctx := context.Background()

	c, _ := svc.CreateCall(ctx, "AC1", "+2348012345678", "+2348098765432", calls.CreateOptions{})
	waitFor(t, svc, "AC1", c.CallID, func(c calls.Call) bool { return c.Status == calls.StatusInProgress })

	done, err := svc.TerminateCall(ctx, "AC1", c.CallID, calls.StatusCompleted)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if done.Status != calls.StatusCompleted || done.DurationSeconds == nil || done.Price == nil {
		t.Fatalf("expected measured completion, got %+v", done)
	}

	deadline := time.Now().Add(time.Second)
	for s.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.Active() != 0 {
		t.Fatalf("expected task to be stopped")
	}
	again, _ := svc.GetCall(ctx, "AC1", c.CallID)
	if *again.DurationSeconds != *done.DurationSeconds || !again.EndTime.Equal(*done.EndTime) {
		t.Fatalf("completion fields changed after termination")
	}
}

func TestScheduler_CallbackDialerFailure(t *testing.T) {
	d := telephony.NewCallbackDialer(4)
	svc, _ := newService(t, d)
	ctx := context.Background()

	c, _ := svc.CreateCall(ctx, "AC1", "+2348012345678", "+2348098765432", calls.CreateOptions{})
	if !d.Deliver("AC1", c.CallID, calls.Event{Kind: calls.EventRinging, At: time.Now(), Source: calls.SourceCallback}) {
		t.Fatalf("expected delivery")
	}
	waitFor(t, svc, "AC1", c.CallID, func(c calls.Call) bool { return c.Status == calls.StatusRinging })

	d.Deliver("AC1", c.CallID, calls.Event{Kind: calls.EventNoAnswer, At: time.Now(), Source: calls.SourceCallback})
	done := waitFor(t, svc, "AC1", c.CallID, func(c calls.Call) bool { return c.Status.IsTerminal() })
	if done.Status != calls.StatusNoAnswer || done.Price != nil || done.EndTime != nil {
		t.Fatalf("expected no-answer without completion fields, got %+v", done)
	}

	deadline := time.Now().Add(time.Second)
	for d.Open() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Open() != 0 {
		t.Fatalf("expected stream to close after terminal status")
	}
}

func TestScheduler_LaunchAfterClose(t *testing.T) {
	s := NewScheduler(nil, telephony.NewCallbackDialer(1))
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	err := s.Launch(context.Background(), calls.Call{AccountID: "AC1", CallID: "CA1"})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestScheduler_CloseStopsTasks(t *testing.T) {
	svc, s := newService(t, simulator(t, time.Hour, time.Hour, time.Hour))
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateCall(context.Background(), "AC1", "+2348012345678", "+2348098765432", calls.CreateOptions{}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if s.Active() != 3 {
		t.Fatalf("expected 3 active tasks, got %d", s.Active())
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.Active() != 0 {
		t.Fatalf("expected no active tasks after close, got %d", s.Active())
	}
}
