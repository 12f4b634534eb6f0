package calls

import (
	"fmt"
	"time"

	"voice-platform/internal/pricing"
)

// EventKind is a call-progress signal, produced by a dialer or an explicit request.
type EventKind string

const (
	EventRinging   EventKind = "ringing"
	EventAnswered  EventKind = "answered"
	EventCompleted EventKind = "completed"
	EventBusy      EventKind = "busy"
	EventFailed    EventKind = "failed"
	EventNoAnswer  EventKind = "no-answer"
	EventCanceled  EventKind = "canceled"
)

// Event sources.
const (
	SourceSimulator = "simulator"
	SourceCallback  = "callback"
	SourceAPI       = "api"
)

type Event struct {
	Kind EventKind
	At   time.Time

	// DurationSeconds is the reported talk time on completion. When nil the
	// duration is measured from StartTime to At.
	DurationSeconds *int

	Source string
}

// Advance applies ev to c if c's current status admits it.
// It returns false without touching c when the event does not apply.
func Advance(c *Call, ev Event) (bool, error) {
	if c.Status.IsTerminal() {
		return false, nil
	}
	at := ev.At.UTC()

	switch ev.Kind {
	case EventRinging:
		if c.Status != StatusQueued {
			return false, nil
		}
		leaveQueued(c, at)
		c.Status = StatusRinging
		return true, nil

	case EventAnswered:
		if c.Status != StatusRinging {
			return false, nil
		}
		c.Status = StatusInProgress
		return true, nil

	case EventCompleted:
		if c.Status != StatusInProgress {
			return false, nil
		}
		complete(c, at, ev.DurationSeconds)
		return true, nil

	case EventBusy, EventNoAnswer:
		if c.Status != StatusQueued && c.Status != StatusRinging {
			return false, nil
		}
		leaveQueued(c, at)
		c.Status = Status(ev.Kind)
		return true, nil

	case EventFailed:
		leaveQueued(c, at)
		c.Status = StatusFailed
		return true, nil

	case EventCanceled:
		if c.Status != StatusRinging {
			return false, nil
		}
		c.Status = StatusCanceled
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown event %q", ErrValidation, ev.Kind)
	}
}

// leaveQueued stamps StartTime the first time c moves out of queued.
func leaveQueued(c *Call, at time.Time) {
	if c.Status == StatusQueued && c.StartTime == nil {
		c.StartTime = &at
	}
}

// complete sets end time, duration and price together.
func complete(c *Call, at time.Time, reported *int) {
	start := at
	if c.StartTime != nil {
		start = *c.StartTime
	}

	var duration int
	end := at
	if reported != nil {
		duration = max(*reported, 0)
		end = start.Add(time.Duration(duration) * time.Second)
	} else {
		duration = max(int(at.Sub(start)/time.Second), 0)
	}

	price := pricing.Price(duration, c.RatePerMinute)
	c.Status = StatusCompleted
	c.EndTime = &end
	c.DurationSeconds = &duration
	c.Price = &price
}
