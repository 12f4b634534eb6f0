package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"voice-platform/internal/audit"
	"voice-platform/internal/calls"
	"voice-platform/internal/pricing"

	"github.com/gin-gonic/gin"
)

// callResource is the Twilio-shaped rendering of a call.
type callResource struct {
	Sid           string     `json:"sid"`
	AccountSid    string     `json:"account_sid"`
	To            string     `json:"to"`
	From          string     `json:"from"`
	Status        string     `json:"status"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Duration      *int       `json:"duration"`
	Price         *string    `json:"price"`
	PriceUnit     string     `json:"price_unit"`
	Direction     string     `json:"direction"`
	AnsweredBy    *string    `json:"answered_by"`
	ForwardedFrom *string    `json:"forwarded_from"`
	CallerName    *string    `json:"caller_name"`
	URI           string     `json:"uri"`
	DateCreated   time.Time  `json:"date_created"`
	DateUpdated   time.Time  `json:"date_updated"`

	ToCountry        *string `json:"to_country"`
	FromCountry      *string `json:"from_country"`
	RatePerMinute    string  `json:"rate_per_minute"`
	RateTier         string  `json:"rate_tier"`
	WebhookURL       *string `json:"webhook_url"`
	WebhookMethod    string  `json:"webhook_method"`
	Timeout          int     `json:"timeout"`
	Record           bool    `json:"record"`
	MachineDetection bool    `json:"machine_detection"`

	SubresourceURIs map[string]string `json:"subresource_uris"`
}

func callsURI(accountID string) string { return twilioBase + accountID + "/Calls" }

func renderCall(c calls.Call) callResource {
	uri := callsURI(c.AccountID) + "/" + c.CallID
	out := callResource{
		Sid:              c.CallID,
		AccountSid:       c.AccountID,
		To:               c.To,
		From:             c.From,
		Status:           string(c.Status),
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		Duration:         c.DurationSeconds,
		PriceUnit:        c.PriceUnit,
		Direction:        string(c.Direction),
		URI:              uri,
		DateCreated:      c.CreatedAt,
		DateUpdated:      c.UpdatedAt,
		ToCountry:        c.ToCountry,
		FromCountry:      c.FromCountry,
		RatePerMinute:    c.RatePerMinute.String(),
		RateTier:         string(c.RateTier),
		WebhookURL:       optionalString(c.WebhookURL),
		WebhookMethod:    c.WebhookMethod,
		Timeout:          c.TimeoutSeconds,
		Record:           c.Record,
		MachineDetection: c.MachineDetection,
		SubresourceURIs: map[string]string{
			"recordings":    uri + "/Recordings",
			"notifications": uri + "/Notifications",
		},
	}
	if c.Price != nil {
		p := pricing.FormatPrice(*c.Price)
		out.Price = &p
	}
	return out
}

type createCallRequest struct {
	To               string `form:"To" json:"To"`
	From             string `form:"From" json:"From"`
	URL              string `form:"Url" json:"Url"`
	Method           string `form:"Method" json:"Method"`
	Timeout          int    `form:"Timeout" json:"Timeout"`
	Record           bool   `form:"Record" json:"Record"`
	MachineDetection bool   `form:"MachineDetection" json:"MachineDetection"`
}

// CreateCall places an outbound call for the path account. It answers 201 with the
// queued record; progress is observed by polling.
func (h Handlers) CreateCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBind(&req); err != nil {
		invalid(c, "Validation failed")
		return
	}
	if req.To == "" || req.From == "" {
		invalid(c, "\"To\" and \"From\" are required")
		return
	}

	call, err := h.Calls.CreateCall(c.Request.Context(), c.Param("account_sid"), req.To, req.From, calls.CreateOptions{
		WebhookURL:       req.URL,
		WebhookMethod:    req.Method,
		TimeoutSeconds:   req.Timeout,
		Record:           req.Record,
		MachineDetection: req.MachineDetection,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, renderCall(call))
}

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.GetCall(c.Request.Context(), c.Param("account_sid"), c.Param("call_sid"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCall(call))
}

// ListCalls pages through the account's calls with Twilio's Page/PageSize parameters.
func (h Handlers) ListCalls(c *gin.Context) {
	acct := c.Param("account_sid")
	page, ok := queryInt(c, "Page")
	if !ok {
		invalid(c, "\"Page\" must be an integer")
		return
	}
	pageSize, ok := queryInt(c, "PageSize")
	if !ok {
		invalid(c, "\"PageSize\" must be an integer")
		return
	}

	p, err := h.Calls.ListCalls(c.Request.Context(), acct, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]callResource, 0, len(p.Calls))
	for _, call := range p.Calls {
		items = append(items, renderCall(call))
	}
	base := callsURI(acct)
	pageURI := func(n int) string { return fmt.Sprintf("%s?Page=%d&PageSize=%d", base, n, p.PageSize) }

	var prev, next *string
	if p.HasPrevious {
		s := pageURI(p.Page - 1)
		prev = &s
	}
	if p.HasNext {
		s := pageURI(p.Page + 1)
		next = &s
	}
	c.JSON(http.StatusOK, gin.H{
		"calls":             items,
		"page":              p.Page,
		"page_size":         p.PageSize,
		"num_pages":         p.NumPages,
		"total":             p.Total,
		"start":             p.Start(),
		"end":               p.End(),
		"uri":               base,
		"first_page_uri":    pageURI(0),
		"previous_page_uri": prev,
		"next_page_uri":     next,
	})
}

type updateCallRequest struct {
	Status string `form:"Status" json:"Status"`
}

// UpdateCall applies a caller-issued status. "completed" hangs up an in-progress call and
// "canceled" a ringing one; anything else returns the call unchanged.
func (h Handlers) UpdateCall(c *gin.Context) {
	acct, sid := c.Param("account_sid"), c.Param("call_sid")

	var req updateCallRequest
	if err := c.ShouldBind(&req); err != nil {
		invalid(c, "Validation failed")
		return
	}

	call, err := h.Calls.TerminateCall(c.Request.Context(), acct, sid, calls.Status(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	h.record(c, func(ctx context.Context, s *audit.Service, actor, ip string) error {
		return s.LogCallTerminateRequested(ctx, acct, actor, ip, sid, req.Status, string(call.Status))
	})
	c.JSON(http.StatusOK, renderCall(call))
}

// queryInt reads an optional integer query parameter; absent means zero.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
