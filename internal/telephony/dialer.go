package telephony

import (
	"context"

	"voice-platform/internal/calls"
)

// Dialer is the provider-agnostic boundary between the lifecycle scheduler and whatever
// produces call progress.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Dial must not block on progress; events arrive on the returned channel in order.
// - The channel is closed when the dialer has nothing more to report or ctx is done.
// - Dialers report what happened. Deciding whether an event applies is the state machine's job.
type Dialer interface {
	Name() string
	Dial(ctx context.Context, req DialRequest) (<-chan calls.Event, error)
}

// DialRequest identifies the call being placed.
type DialRequest struct {
	AccountID string `json:"account_id"`
	CallID    string `json:"call_id"`

	// To and From are canonical E.164.
	To   string `json:"to"`
	From string `json:"from"`

	TimeoutSeconds int `json:"timeout_seconds"`
}

// RequestFor builds the dial request for a persisted call.
func RequestFor(c calls.Call) DialRequest {
	return DialRequest{
		AccountID:      c.AccountID,
		CallID:         c.CallID,
		To:             c.To,
		From:           c.From,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}
