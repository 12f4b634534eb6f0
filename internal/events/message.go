// Package events publishes call status changes to downstream consumers.
package events

import (
	"time"

	"voice-platform/internal/calls"
	"voice-platform/internal/pricing"

	"github.com/google/uuid"
)

// StatusMessage is the wire form of one applied status change.
type StatusMessage struct {
	EventID        string    `json:"event_id"`
	AccountID      string    `json:"account_id"`
	CallID         string    `json:"call_id"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
	OccurredAt     time.Time `json:"occurred_at"`

	To            string `json:"to"`
	From          string `json:"from"`
	RatePerMinute string `json:"rate_per_minute"`
	Duration      *int   `json:"duration,omitempty"`
	Price         string `json:"price,omitempty"`
	PriceUnit     string `json:"price_unit"`
}

func NewStatusMessage(ch calls.StatusChange) StatusMessage {
	m := StatusMessage{
		EventID:        uuid.NewString(),
		AccountID:      ch.AccountID,
		CallID:         ch.CallID,
		PreviousStatus: string(ch.From),
		Status:         string(ch.To),
		Source:         ch.Source,
		OccurredAt:     ch.At.UTC(),
		To:             ch.Call.To,
		From:           ch.Call.From,
		RatePerMinute:  ch.Call.RatePerMinute.String(),
		Duration:       ch.Call.DurationSeconds,
		PriceUnit:      ch.Call.PriceUnit,
	}
	if ch.Call.Price != nil {
		m.Price = pricing.FormatPrice(*ch.Call.Price)
	}
	return m
}
