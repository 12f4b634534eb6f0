// Package reporting aggregates an account's call records into usage summaries.
package reporting

import (
	"context"
	"errors"
	"time"

	"voice-platform/internal/calls"
	"voice-platform/internal/pricing"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Implementations must enforce account filtering.
// - calls.Store satisfies it.
type Repository interface {
	ListCreatedBetween(ctx context.Context, accountID string, from, to time.Time) ([]calls.Call, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Usage(ctx context.Context, req UsageRequest) (UsageSummary, error) {
	if req.AccountID == "" {
		return UsageSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return UsageSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return UsageSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCreatedBetween(ctx, req.AccountID, req.Range.From, req.Range.To)
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{
		AccountID:   req.AccountID,
		Range:       req.Range,
		TotalSpend:  decimal.Zero,
		SpendByTier: map[string]decimal.Decimal{},
		PriceUnit:   pricing.Currency,
	}
	terminal := 0
	for _, c := range rows {
		out.TotalCalls++
		if c.Status.IsTerminal() {
			terminal++
		}
		switch c.Status {
		case calls.StatusQueued:
			out.QueuedCalls++
		case calls.StatusRinging:
			out.RingingCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		}
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
			out.BillableMinutes += pricing.NewQuote(*c.DurationSeconds, c.RatePerMinute).BillableMinutes
		}
		if c.Price != nil {
			out.TotalSpend = out.TotalSpend.Add(*c.Price)
			tier := string(c.RateTier)
			out.SpendByTier[tier] = out.SpendByTier[tier].Add(*c.Price)
		}
	}
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.CompletedCalls
	}
	if terminal > 0 {
		out.ConnectionRate = float64(out.CompletedCalls) / float64(terminal)
	}
	return out, nil
}
