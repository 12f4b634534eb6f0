package calls

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"voice-platform/internal/phone"
	"voice-platform/internal/pricing"
	"voice-platform/pkg/logger"
	"voice-platform/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "voice-platform/calls"

// Launcher drives a created call through its lifecycle.
type Launcher interface {
	Launch(ctx context.Context, c Call) error
	Stop(accountID, callID string)
}

// Publisher receives every applied status change.
type Publisher interface {
	PublishStatus(ctx context.Context, ch StatusChange) error
}

// Limiter caps concurrently active calls per account.
type Limiter interface {
	Acquire(ctx context.Context, accountID string) (bool, error)
	Release(ctx context.Context, accountID string) error
}

// Service is the only entry point for placing, reading and terminating calls.
// The accountID passed to every method is trusted; authentication happens upstream.
type Service struct {
	store     Store
	pricing   *pricing.Service
	launcher  Launcher
	publisher Publisher
	limiter   Limiter

	retry           utils.RetryPolicy
	defaultPageSize int
	maxPageSize     int

	clock  func() time.Time
	newID  func() string
	tracer trace.Tracer
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithRetryPolicy(p utils.RetryPolicy) Option { return func(s *Service) { s.retry = p } }

func WithClock(clock func() time.Time) Option { return func(s *Service) { s.clock = clock } }

// WithPaging sets the default and maximum page sizes for ListCalls.
func WithPaging(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
	}
}

func NewService(store Store, pricer *pricing.Service, opts ...Option) *Service {
	s := &Service{
		store:           store,
		pricing:         pricer,
		retry:           storeRetryPolicy(utils.DefaultRetryPolicy()),
		defaultPageSize: 50,
		maxPageSize:     1000,
		clock:           time.Now,
		newID:           func() string { return utils.NewSID("CA") },
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = storeRetryPolicy(s.retry)
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	return s
}

// SetLauncher wires the lifecycle driver. It must be called before serving requests.
func (s *Service) SetLauncher(l Launcher) { s.launcher = l }

// storeRetryPolicy retries store failures except outcomes that will not change.
func storeRetryPolicy(p utils.RetryPolicy) utils.RetryPolicy {
	p.Retryable = func(err error) bool {
		return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) && !errors.Is(err, ErrConflict)
	}
	return p
}

// CreateCall validates the request, prices the route, persists a queued call and
// hands it to the lifecycle driver. It returns without waiting for progress.
func (s *Service) CreateCall(ctx context.Context, accountID, to, from string, opts CreateOptions) (Call, error) {
	ctx, span := s.tracer.Start(ctx, "call.create", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	if strings.TrimSpace(accountID) == "" {
		return Call{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	toNumber, err := phone.Parse(to)
	if err != nil {
		return Call{}, fmt.Errorf("%w: invalid \"To\" phone number", ErrValidation)
	}
	fromNumber, err := phone.Parse(from)
	if err != nil {
		return Call{}, fmt.Errorf("%w: invalid \"From\" phone number", ErrValidation)
	}
	opts, err = opts.normalize()
	if err != nil {
		return Call{}, err
	}

	route := s.pricing.Route(toNumber, fromNumber)

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, accountID)
		if err != nil {
			span.RecordError(err)
			return Call{}, fmt.Errorf("calls: acquire capacity: %w", err)
		}
		if !ok {
			return Call{}, ErrCapacity
		}
	}

	now := s.clock().UTC()
	c := Call{
		CallID:           s.newID(),
		AccountID:        accountID,
		To:               toNumber,
		From:             fromNumber,
		ToCountry:        optional(route.ToCountry),
		FromCountry:      optional(route.FromCountry),
		Status:           StatusQueued,
		Direction:        DirectionOutboundAPI,
		RatePerMinute:    route.RatePerMinute,
		RateTier:         route.Tier,
		PriceUnit:        route.Currency,
		WebhookURL:       opts.WebhookURL,
		WebhookMethod:    opts.WebhookMethod,
		TimeoutSeconds:   opts.TimeoutSeconds,
		Record:           opts.Record,
		MachineDetection: opts.MachineDetection,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	c, err = s.store.Create(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store create failed")
		s.release(ctx, accountID)
		return Call{}, fmt.Errorf("calls: create: %w", err)
	}
	span.SetAttributes(attribute.String("call.id", c.CallID), attribute.String("call.rate_tier", string(c.RateTier)))

	log := logger.From(ctx)
	log.Info("call created",
		"call_id", c.CallID,
		"account_id", accountID,
		"to", c.To,
		"from", c.From,
		"to_country", route.ToCountry,
		"from_country", route.FromCountry,
		"rate_per_minute", c.RatePerMinute.String(),
	)
	s.publish(ctx, StatusChange{AccountID: accountID, CallID: c.CallID, To: c.Status, Source: SourceAPI, At: now, Call: c})

	if s.launcher != nil {
		if err := s.launcher.Launch(ctx, c); err != nil {
			log.Error("call launch failed", "call_id", c.CallID, "err", err)
			span.RecordError(err)
			failed, _, ferr := s.ApplyEvent(ctx, accountID, c.CallID, Event{Kind: EventFailed, At: s.clock(), Source: SourceAPI})
			if ferr == nil {
				return failed, nil
			}
			log.Error("mark launched call failed", "call_id", c.CallID, "err", ferr)
			s.release(ctx, accountID)
			return Call{}, fmt.Errorf("calls: launch: %w", err)
		}
	}
	return c, nil
}

// GetCall returns the call if it belongs to accountID.
func (s *Service) GetCall(ctx context.Context, accountID, callID string) (Call, error) {
	c, err := s.store.Get(ctx, accountID, callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, ErrNotFound
		}
		return Call{}, fmt.Errorf("calls: get: %w", err)
	}
	return c, nil
}

// ListCalls returns one zero-based page of the account's calls in creation order.
func (s *Service) ListCalls(ctx context.Context, accountID string, page, pageSize int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	// keep page*pageSize+pageSize within int
	if maxPage := (math.MaxInt - pageSize) / pageSize; page > maxPage {
		page = maxPage
	}
	offset := page * pageSize
	rows, total, err := s.store.List(ctx, accountID, offset, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("calls: list: %w", err)
	}

	numPages := total / pageSize
	if total%pageSize != 0 {
		numPages++
	}
	return Page{
		Calls:       rows,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		NumPages:    numPages,
		HasPrevious: page > 0,
		HasNext:     offset+pageSize < total,
	}, nil
}

// TerminateCall applies a caller-issued status change.
// "completed" ends an in-progress call with its measured duration; "canceled" ends a
// ringing call. Any other request or status returns the call unchanged.
func (s *Service) TerminateCall(ctx context.Context, accountID, callID string, requested Status) (Call, error) {
	var kind EventKind
	switch requested {
	case StatusCompleted:
		kind = EventCompleted
	case StatusCanceled:
		kind = EventCanceled
	default:
		return s.GetCall(ctx, accountID, callID)
	}

	c, applied, err := s.ApplyEvent(ctx, accountID, callID, Event{Kind: kind, At: s.clock(), Source: SourceAPI})
	if err != nil {
		return Call{}, err
	}
	if applied && s.launcher != nil {
		s.launcher.Stop(accountID, callID)
	}
	return c, nil
}

// ApplyEvent is the single guarded write path for lifecycle transitions.
// It returns the current call and whether ev changed it.
func (s *Service) ApplyEvent(ctx context.Context, accountID, callID string, ev Event) (Call, bool, error) {
	ctx, span := s.tracer.Start(ctx, "call.transition", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("call.id", callID),
		attribute.String("call.event", string(ev.Kind)),
	))
	defer span.End()

	if ev.At.IsZero() {
		ev.At = s.clock()
	}
	log := logger.From(ctx)

	var (
		out     Call
		applied bool
		prev    Status
	)
	attempt := 0
	err := utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			log.Warn("retrying call transition", "call_id", callID, "event", ev.Kind, "attempt", attempt)
		}
		c, err := s.store.Update(ctx, accountID, callID, func(c *Call) (bool, error) {
			prev = c.Status
			ok, err := Advance(c, ev)
			applied = ok
			return ok, err
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, false, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return Call{}, false, fmt.Errorf("calls: apply %s: %w", ev.Kind, err)
	}
	span.SetAttributes(attribute.Bool("call.applied", applied), attribute.String("call.status", string(out.Status)))
	if !applied {
		log.Debug("call transition skipped", "call_id", callID, "event", ev.Kind, "status", out.Status)
		return out, false, nil
	}

	attrs := []any{"call_id", callID, "account_id", accountID, "from", prev, "to", out.Status, "source", ev.Source}
	if out.DurationSeconds != nil {
		attrs = append(attrs, "duration", *out.DurationSeconds)
	}
	if out.Price != nil {
		attrs = append(attrs, "price", pricing.FormatPrice(*out.Price))
	}
	log.Info("call transitioned", attrs...)

	s.publish(ctx, StatusChange{AccountID: accountID, CallID: callID, From: prev, To: out.Status, Source: ev.Source, At: ev.At.UTC(), Call: out})
	if out.Status.IsTerminal() {
		s.release(ctx, accountID)
	}
	return out, true, nil
}

// Quote resolves the route a call between the two numbers would be priced on.
func (s *Service) Quote(to, from string) (pricing.Route, error) {
	toNumber, err := phone.Parse(to)
	if err != nil {
		return pricing.Route{}, fmt.Errorf("%w: invalid \"To\" phone number", ErrValidation)
	}
	fromNumber, err := phone.Parse(from)
	if err != nil {
		return pricing.Route{}, fmt.Errorf("%w: invalid \"From\" phone number", ErrValidation)
	}
	return s.pricing.Route(toNumber, fromNumber), nil
}

// Estimate prices a call of durationSeconds on route.
func (s *Service) Estimate(route pricing.Route, durationSeconds int) (pricing.Quote, error) {
	q, err := s.pricing.QuoteDuration(durationSeconds, route.RatePerMinute)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidPricingReq) {
			return pricing.Quote{}, fmt.Errorf("%w: duration must not be negative", ErrValidation)
		}
		return pricing.Quote{}, err
	}
	return q, nil
}

func (s *Service) publish(ctx context.Context, ch StatusChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatus(ctx, ch); err != nil {
		logger.From(ctx).Warn("status publish failed", "call_id", ch.CallID, "status", ch.To, "err", err)
	}
}

func (s *Service) release(ctx context.Context, accountID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Release(context.WithoutCancel(ctx), accountID); err != nil {
		logger.From(ctx).Warn("capacity release failed", "account_id", accountID, "err", err)
	}
}

func (o CreateOptions) normalize() (CreateOptions, error) {
	out := o
	out.WebhookMethod = strings.ToUpper(strings.TrimSpace(o.WebhookMethod))
	if out.WebhookMethod == "" {
		out.WebhookMethod = DefaultWebhookMethod
	}
	if out.WebhookMethod != "GET" && out.WebhookMethod != "POST" {
		return CreateOptions{}, fmt.Errorf("%w: \"Method\" must be one of [GET, POST]", ErrValidation)
	}

	if out.TimeoutSeconds == 0 {
		out.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if out.TimeoutSeconds < 1 || out.TimeoutSeconds > MaxTimeoutSeconds {
		return CreateOptions{}, fmt.Errorf("%w: \"Timeout\" must be between 1 and %d", ErrValidation, MaxTimeoutSeconds)
	}

	out.WebhookURL = strings.TrimSpace(o.WebhookURL)
	if out.WebhookURL != "" {
		u, err := url.Parse(out.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return CreateOptions{}, fmt.Errorf("%w: \"Url\" must be a valid uri", ErrValidation)
		}
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
