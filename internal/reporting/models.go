package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// UsageRequest asks for one account's usage over [From, To) by creation time.
// Account isolation: AccountID is required.
type UsageRequest struct {
	AccountID string    `json:"account_id"`
	Range     TimeRange `json:"range"`
}

type UsageSummary struct {
	AccountID string    `json:"account_id"`
	Range     TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	QueuedCalls     int `json:"queued_calls"`
	RingingCalls    int `json:"ringing_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
	BillableMinutes        int `json:"billable_minutes"`

	// ConnectionRate is completed calls over calls that reached a terminal status.
	ConnectionRate float64 `json:"connection_rate"`

	TotalSpend  decimal.Decimal            `json:"total_spend"`
	SpendByTier map[string]decimal.Decimal `json:"spend_by_tier"`
	PriceUnit   string                     `json:"price_unit"`
}
