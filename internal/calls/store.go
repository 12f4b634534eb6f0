package calls

import (
	"context"
	"time"
)

// UpdateFunc mutates a working copy of a call. It reports whether anything changed;
// returning false discards the copy.
type UpdateFunc func(c *Call) (changed bool, err error)

// Store is the persistence contract for calls.
//
// Every lookup is scoped by account: a call owned by another account is ErrNotFound.
// Update is an atomic read-modify-write; writers to one call are serialized.
// Identity, rate and creation-time configuration are immutable through Update.
type Store interface {
	Create(ctx context.Context, c Call) (Call, error)
	Get(ctx context.Context, accountID, callID string) (Call, error)
	List(ctx context.Context, accountID string, offset, limit int) ([]Call, int, error)
	Update(ctx context.Context, accountID, callID string, fn UpdateFunc) (Call, error)
	ListCreatedBetween(ctx context.Context, accountID string, from, to time.Time) ([]Call, error)
}

// keepImmutable copies every field Update may not change from orig into c.
func keepImmutable(c *Call, orig Call) {
	c.CallID = orig.CallID
	c.AccountID = orig.AccountID
	c.To = orig.To
	c.From = orig.From
	c.ToCountry = clonePtr(orig.ToCountry)
	c.FromCountry = clonePtr(orig.FromCountry)
	c.Direction = orig.Direction
	c.RatePerMinute = orig.RatePerMinute
	c.RateTier = orig.RateTier
	c.PriceUnit = orig.PriceUnit
	c.WebhookURL = orig.WebhookURL
	c.WebhookMethod = orig.WebhookMethod
	c.TimeoutSeconds = orig.TimeoutSeconds
	c.Record = orig.Record
	c.MachineDetection = orig.MachineDetection
	c.Seq = orig.Seq
	c.CreatedAt = orig.CreatedAt
}
