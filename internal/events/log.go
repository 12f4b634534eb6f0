package events

import (
	"context"
	"log/slog"

	"voice-platform/internal/calls"
)

// LogPublisher records status changes as structured log lines. It is used when no
// broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(l *slog.Logger) *LogPublisher {
	if l == nil {
		l = slog.Default()
	}
	return &LogPublisher{log: l}
}

func (p *LogPublisher) PublishStatus(ctx context.Context, ch calls.StatusChange) error {
	m := NewStatusMessage(ch)
	attrs := []any{
		"event_id", m.EventID,
		"account_id", m.AccountID,
		"call_id", m.CallID,
		"previous_status", m.PreviousStatus,
		"status", m.Status,
		"source", m.Source,
	}
	if m.Price != "" {
		attrs = append(attrs, "price", m.Price, "price_unit", m.PriceUnit)
	}
	p.log.InfoContext(ctx, "call status changed", attrs...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
