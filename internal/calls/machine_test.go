package calls

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Unix(1700000000, 0).UTC()

func queuedCall(rate string) Call {
	return Call{CallID: "CA1", AccountID: "AC1", Status: StatusQueued, RatePerMinute: decimal.RequireFromString(rate)}
}

func mustAdvance(t *testing.T, c *Call, ev Event, want bool) {
	t.Helper()
	got, err := Advance(c, ev)
	if err != nil {
		t.Fatalf("advance %s: %v", ev.Kind, err)
	}
	if got != want {
		t.Fatalf("advance %s from %s: expected applied=%v", ev.Kind, c.Status, want)
	}
}

func TestAdvance_HappyPathWithReportedDuration(t *testing.T) {
	c := queuedCall("0.001")
	d := 90

	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	if c.Status != StatusRinging || c.StartTime == nil || !c.StartTime.Equal(t0) {
		t.Fatalf("expected ringing with start time, got %+v", c)
	}
	if c.EndTime != nil || c.DurationSeconds != nil || c.Price != nil {
		t.Fatalf("expected no completion fields while ringing")
	}

	mustAdvance(t, &c, Event{Kind: EventAnswered, At: t0.Add(2 * time.Second)}, true)
	if c.Status != StatusInProgress {
		t.Fatalf("expected in-progress, got %s", c.Status)
	}

	mustAdvance(t, &c, Event{Kind: EventCompleted, At: t0.Add(7 * time.Second), DurationSeconds: &d}, true)
	if c.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", c.Status)
	}
	if *c.DurationSeconds != 90 {
		t.Fatalf("expected 90s, got %d", *c.DurationSeconds)
	}
	if !c.Price.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("expected price 0.002, got %s", c.Price)
	}
	if got := int(c.EndTime.Sub(*c.StartTime) / time.Second); got != *c.DurationSeconds {
		t.Fatalf("expected end-start == duration, got %d vs %d", got, *c.DurationSeconds)
	}
}

func TestAdvance_MeasuredCompletionFloorsSeconds(t *testing.T) {
	c := queuedCall("0.003")
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventAnswered, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventCompleted, At: t0.Add(61*time.Second + 900*time.Millisecond)}, true)

	if *c.DurationSeconds != 61 {
		t.Fatalf("expected floor to 61s, got %d", *c.DurationSeconds)
	}
	if !c.Price.Equal(decimal.RequireFromString("0.006")) {
		t.Fatalf("expected 2 minutes at 0.003, got %s", c.Price)
	}
	if !c.EndTime.Equal(t0.Add(61*time.Second + 900*time.Millisecond)) {
		t.Fatalf("expected end time at event time")
	}
}

func TestAdvance_GuardsOutOfOrderEvents(t *testing.T) {
	c := queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventAnswered, At: t0}, false)
	mustAdvance(t, &c, Event{Kind: EventCompleted, At: t0}, false)
	mustAdvance(t, &c, Event{Kind: EventCanceled, At: t0}, false)
	if c.Status != StatusQueued || c.StartTime != nil {
		t.Fatalf("expected untouched queued call, got %+v", c)
	}

	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0.Add(time.Second)}, false)
	if !c.StartTime.Equal(t0) {
		t.Fatalf("expected start time set once")
	}
}

func TestAdvance_TerminalAcceptsNothing(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled} {
		c := queuedCall("0.001")
		c.Status = status
		for _, k := range []EventKind{EventRinging, EventAnswered, EventCompleted, EventBusy, EventFailed, EventNoAnswer, EventCanceled} {
			mustAdvance(t, &c, Event{Kind: k, At: t0}, false)
		}
		if c.Status != status {
			t.Fatalf("terminal status %s changed to %s", status, c.Status)
		}
	}
}

func TestAdvance_CancelOnlyWhileRinging(t *testing.T) {
	c := queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventCanceled, At: t0}, true)
	if c.Status != StatusCanceled || c.Price != nil || c.EndTime != nil {
		t.Fatalf("expected canceled without completion fields, got %+v", c)
	}

	c = queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventAnswered, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventCanceled, At: t0}, false)
}

func TestAdvance_FailureStates(t *testing.T) {
	c := queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventBusy, At: t0}, true)
	if c.Status != StatusBusy || c.DurationSeconds != nil {
		t.Fatalf("expected busy without duration, got %+v", c)
	}
	if c.StartTime == nil || !c.StartTime.Equal(t0) {
		t.Fatalf("expected start time stamped when leaving queued, got %v", c.StartTime)
	}

	c = queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventFailed, At: t0.Add(time.Second)}, true)
	if c.Status != StatusFailed || c.StartTime == nil || !c.StartTime.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected failed with start time, got %+v", c)
	}

	c = queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventNoAnswer, At: t0.Add(30 * time.Second)}, true)
	if c.Status != StatusNoAnswer {
		t.Fatalf("expected no-answer, got %s", c.Status)
	}
	if c.StartTime == nil || !c.StartTime.Equal(t0) {
		t.Fatalf("expected start time from ringing, got %v", c.StartTime)
	}

	c = queuedCall("0.001")
	mustAdvance(t, &c, Event{Kind: EventRinging, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventAnswered, At: t0}, true)
	mustAdvance(t, &c, Event{Kind: EventBusy, At: t0}, false)
	mustAdvance(t, &c, Event{Kind: EventFailed, At: t0}, true)
	if c.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", c.Status)
	}
}

func TestAdvance_UnknownEvent(t *testing.T) {
	c := queuedCall("0.001")
	if _, err := Advance(&c, Event{Kind: "teleported"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if StatusQueued.IsTerminal() || StatusRinging.IsTerminal() || StatusInProgress.IsTerminal() {
		t.Fatalf("expected non-terminal statuses")
	}
	if !StatusNoAnswer.IsTerminal() || !StatusCanceled.IsTerminal() {
		t.Fatalf("expected terminal statuses")
	}
	if Status("paused").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}
