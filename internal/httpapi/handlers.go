package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voice-platform/internal/accounts"
	"voice-platform/internal/audit"
	"voice-platform/internal/auth"
	"voice-platform/internal/calls"
	"voice-platform/internal/pricing"
	"voice-platform/internal/reporting"
	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Accounts  *accounts.Service
	Calls     *calls.Service
	Reporting *reporting.Service
	Audit     *audit.Service

	Version string
	Region  string

	// Ready reports backing store health for /health. Nil means always ready.
	Ready func(ctx context.Context) error

	Now func() time.Time
}

const twilioBase = "/2010-04-01/Accounts/"

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   h.Version,
		"region":    h.Region,
	}
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("health check failed", "err", err)
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h Handlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Voice Platform API",
		"version": h.Version,
		"status":  "operational",
		"region":  h.Region,
	})
}

// --- Pricing ---

// Quote prices the route between To and From without placing a call.
func (h Handlers) Quote(c *gin.Context) {
	to, from := c.Query("To"), c.Query("From")
	if to == "" || from == "" {
		invalid(c, "\"To\" and \"From\" are required")
		return
	}
	route, err := h.Calls.Quote(to, from)
	if err != nil {
		fail(c, err)
		return
	}
	body := gin.H{
		"to_country":      optionalString(route.ToCountry),
		"from_country":    optionalString(route.FromCountry),
		"tier":            route.Tier,
		"rate_per_minute": route.RatePerMinute.String(),
		"price_unit":      route.Currency,
	}

	// Duration (seconds) additionally prices a call of that length.
	if raw := c.Query("Duration"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			invalid(c, "\"Duration\" must be a whole number of seconds")
			return
		}
		q, err := h.Calls.Estimate(route, seconds)
		if err != nil {
			fail(c, err)
			return
		}
		body["duration"] = q.DurationSeconds
		body["billable_minutes"] = q.BillableMinutes
		body["price"] = pricing.FormatPrice(q.Total)
	}
	c.JSON(http.StatusOK, body)
}

// --- Usage ---

const defaultUsageWindow = 30 * 24 * time.Hour

// Usage summarizes the account's calls created in [from, to). Both bounds are RFC 3339;
// to defaults to now and from to thirty days before to.
func (h Handlers) Usage(c *gin.Context) {
	acct := c.Param("account_sid")

	end := h.now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			invalid(c, "\"to\" must be an RFC 3339 timestamp")
			return
		}
		end = t
	}
	start := end.Add(-defaultUsageWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			invalid(c, "\"from\" must be an RFC 3339 timestamp")
			return
		}
		start = t
	}

	sum, err := h.Reporting.Usage(c.Request.Context(), reporting.UsageRequest{
		AccountID: acct,
		Range:     reporting.TimeRange{From: start, To: end},
	})
	if err != nil {
		fail(c, err)
		return
	}

	spendByTier := make(map[string]string, len(sum.SpendByTier))
	for tier, amount := range sum.SpendByTier {
		spendByTier[tier] = pricing.FormatPrice(amount)
	}
	c.JSON(http.StatusOK, gin.H{
		"account_sid": sum.AccountID,
		"start_date":  sum.Range.From,
		"end_date":    sum.Range.To,
		"calls": gin.H{
			"total":       sum.TotalCalls,
			"queued":      sum.QueuedCalls,
			"ringing":     sum.RingingCalls,
			"in_progress": sum.InProgressCalls,
			"completed":   sum.CompletedCalls,
			"failed":      sum.FailedCalls,
			"no_answer":   sum.NoAnswerCalls,
			"busy":        sum.BusyCalls,
			"canceled":    sum.CanceledCalls,
		},
		"duration":         sum.TotalDurationSeconds,
		"average_duration": sum.AverageDurationSeconds,
		"billable_minutes": sum.BillableMinutes,
		"connection_rate":  sum.ConnectionRate,
		"price":            pricing.FormatPrice(sum.TotalSpend),
		"price_by_tier":    spendByTier,
		"price_unit":       sum.PriceUnit,
		"uri":              twilioBase + acct + "/Usage",
	})
}

// --- helpers ---

// record appends an audit event without failing the request.
func (h Handlers) record(c *gin.Context, fn func(ctx context.Context, s *audit.Service, actor, ip string) error) {
	if h.Audit == nil {
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	ctx := context.WithoutCancel(c.Request.Context())
	if err := fn(ctx, h.Audit, actor, c.ClientIP()); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
