package telephony

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voice-platform/internal/calls"
)

var (
	ErrInvalidCallback = errors.New("invalid status callback")

	// ErrIgnoredStatus marks reports that carry no lifecycle progress (queued, initiated).
	ErrIgnoredStatus = errors.New("status carries no transition")
)

// StatusCallback captures the subset of a Twilio-style status callback we act on.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/api/call-resource#statuscallback
type StatusCallback struct {
	CallSid      string
	AccountSid   string
	CallStatus   string
	CallDuration string
	Timestamp    string
}

func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallback{}, err
	}
	f := StatusCallback{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid:   strings.TrimSpace(r.PostFormValue("AccountSid")),
		CallStatus:   strings.ToLower(strings.TrimSpace(r.PostFormValue("CallStatus"))),
		CallDuration: strings.TrimSpace(r.PostFormValue("CallDuration")),
		Timestamp:    strings.TrimSpace(r.PostFormValue("Timestamp")),
	}
	if f.CallSid == "" || f.AccountSid == "" || f.CallStatus == "" {
		return StatusCallback{}, fmt.Errorf("%w: CallSid, AccountSid and CallStatus are required", ErrInvalidCallback)
	}
	return f, nil
}

// ToEvent translates the reported status into a lifecycle event.
// now is used when Timestamp is absent or unparseable.
func (f StatusCallback) ToEvent(now time.Time) (calls.Event, error) {
	ev := calls.Event{At: now, Source: calls.SourceCallback}
	if f.Timestamp != "" {
		if ts, err := time.Parse(time.RFC1123Z, f.Timestamp); err == nil {
			ev.At = ts
		}
	}

	switch f.CallStatus {
	case "queued", "initiated":
		return calls.Event{}, ErrIgnoredStatus
	case "ringing":
		ev.Kind = calls.EventRinging
	case "in-progress", "answered":
		ev.Kind = calls.EventAnswered
	case "completed":
		ev.Kind = calls.EventCompleted
		if f.CallDuration != "" {
			d, err := strconv.Atoi(f.CallDuration)
			if err != nil || d < 0 {
				return calls.Event{}, fmt.Errorf("%w: CallDuration must be a non-negative integer", ErrInvalidCallback)
			}
			ev.DurationSeconds = &d
		}
	case "busy":
		ev.Kind = calls.EventBusy
	case "failed":
		ev.Kind = calls.EventFailed
	case "no-answer":
		ev.Kind = calls.EventNoAnswer
	case "canceled":
		ev.Kind = calls.EventCanceled
	default:
		return calls.Event{}, fmt.Errorf("%w: unknown CallStatus %q", ErrInvalidCallback, f.CallStatus)
	}
	return ev, nil
}
