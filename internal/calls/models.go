package calls

import (
	"time"

	"voice-platform/internal/pricing"

	"github.com/shopspring/decimal"
)

// Call is the durable state of one outbound call, scoped to its owning account.
//
// Invariants:
// - RatePerMinute is fixed at creation.
// - StartTime is set once, when the call leaves queued.
// - EndTime, DurationSeconds and Price are set together, once, on completion.
// - A terminal call accepts no further transitions.
type Call struct {
	CallID    string `json:"call_id" db:"call_id"`
	AccountID string `json:"account_id" db:"account_id"`

	To          string  `json:"to" db:"to_number"`
	From        string  `json:"from" db:"from_number"`
	ToCountry   *string `json:"to_country" db:"to_country"`
	FromCountry *string `json:"from_country" db:"from_country"`

	Status    Status    `json:"status" db:"status"`
	Direction Direction `json:"direction" db:"direction"`

	RatePerMinute decimal.Decimal `json:"rate_per_minute" db:"rate_per_minute"`
	RateTier      pricing.Tier    `json:"rate_tier" db:"rate_tier"`
	PriceUnit     string          `json:"price_unit" db:"price_unit"`

	StartTime       *time.Time       `json:"start_time" db:"start_time"`
	EndTime         *time.Time       `json:"end_time" db:"end_time"`
	DurationSeconds *int             `json:"duration" db:"duration_seconds"`
	Price           *decimal.Decimal `json:"price" db:"price"`

	WebhookURL       string `json:"webhook_url,omitempty" db:"webhook_url"`
	WebhookMethod    string `json:"webhook_method" db:"webhook_method"`
	TimeoutSeconds   int    `json:"timeout" db:"timeout_seconds"`
	Record           bool   `json:"record" db:"record"`
	MachineDetection bool   `json:"machine_detection" db:"machine_detection"`

	// Seq is the per-store creation sequence; listing orders by it.
	Seq int64 `json:"-" db:"seq"`

	CreatedAt time.Time `json:"date_created" db:"created_at"`
	UpdatedAt time.Time `json:"date_updated" db:"updated_at"`
}

// Clone returns a copy that shares no pointers with c.
func (c Call) Clone() Call {
	out := c
	out.ToCountry = clonePtr(c.ToCountry)
	out.FromCountry = clonePtr(c.FromCountry)
	out.StartTime = clonePtr(c.StartTime)
	out.EndTime = clonePtr(c.EndTime)
	out.DurationSeconds = clonePtr(c.DurationSeconds)
	out.Price = clonePtr(c.Price)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusBusy       Status = "busy"
	StatusFailed     Status = "failed"
	StatusNoAnswer   Status = "no-answer"
	StatusCanceled   Status = "canceled"
)

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRinging, StatusInProgress:
		return true
	default:
		return s.IsTerminal()
	}
}

type Direction string

const (
	DirectionInbound     Direction = "inbound"
	DirectionOutboundAPI Direction = "outbound-api"
)

// CreateOptions is the creation-time configuration of a call. It never changes afterwards.
type CreateOptions struct {
	WebhookURL       string
	WebhookMethod    string
	TimeoutSeconds   int
	Record           bool
	MachineDetection bool
}

const (
	DefaultWebhookMethod  = "POST"
	DefaultTimeoutSeconds = 60
	MaxTimeoutSeconds     = 600
)

// Page is one window of an account's calls in creation order.
type Page struct {
	Calls []Call

	Page     int
	PageSize int
	Total    int
	NumPages int

	HasPrevious bool
	HasNext     bool
}

// Start is the zero-based index of the first call on the page.
func (p Page) Start() int { return p.Page * p.PageSize }

// End is the index of the last slot on the page, capped at Total-1.
func (p Page) End() int { return min(p.Start()+p.PageSize-1, p.Total-1) }

// StatusChange describes one applied transition.
type StatusChange struct {
	AccountID string    `json:"account_id"`
	CallID    string    `json:"call_id"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	Source    string    `json:"source,omitempty"`
	At        time.Time `json:"at"`
	Call      Call      `json:"call"`
}
