package telephony

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"voice-platform/internal/calls"
)

// SimulatorConfig holds the timer chain and the talk-time range of simulated calls.
type SimulatorConfig struct {
	RingDelay     time.Duration
	AnswerDelay   time.Duration
	CompleteDelay time.Duration

	// Completed calls report a duration in [MinDuration, MaxDuration).
	MinDuration time.Duration
	MaxDuration time.Duration
}

func (c SimulatorConfig) withDefaults() SimulatorConfig {
	out := c
	if out.RingDelay <= 0 {
		out.RingDelay = time.Second
	}
	if out.AnswerDelay <= 0 {
		out.AnswerDelay = 2 * time.Second
	}
	if out.CompleteDelay <= 0 {
		out.CompleteDelay = 5 * time.Second
	}
	if out.MinDuration <= 0 {
		out.MinDuration = 30 * time.Second
	}
	if out.MaxDuration <= 0 {
		out.MaxDuration = 330 * time.Second
	}
	return out
}

// Simulator stands in for a carrier: every call rings, is answered and completes
// after fixed delays.
type Simulator struct {
	cfg SimulatorConfig
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type SimulatorOption func(*Simulator)

// WithRand injects the randomness source used for talk time.
func WithRand(r *rand.Rand) SimulatorOption { return func(s *Simulator) { s.rng = r } }

func WithSimulatorClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

func NewSimulator(cfg SimulatorConfig, opts ...SimulatorOption) (*Simulator, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxDuration < cfg.MinDuration {
		return nil, errors.New("telephony: simulator max duration is below min duration")
	}
	s := &Simulator{
		cfg: cfg,
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Simulator) Name() string { return "simulated" }

// Dial starts the timer chain. Each delay starts only after the previous event was received.
func (s *Simulator) Dial(ctx context.Context, req DialRequest) (<-chan calls.Event, error) {
	if req.CallID == "" {
		return nil, errors.New("telephony: call id is required")
	}

	steps := []struct {
		delay time.Duration
		kind  calls.EventKind
	}{
		{s.cfg.RingDelay, calls.EventRinging},
		{s.cfg.AnswerDelay, calls.EventAnswered},
		{s.cfg.CompleteDelay, calls.EventCompleted},
	}

	out := make(chan calls.Event)
	go func() {
		defer close(out)
		for _, step := range steps {
			if !sleep(ctx, step.delay) {
				return
			}
			ev := calls.Event{Kind: step.kind, At: s.now(), Source: calls.SourceSimulator}
			if step.kind == calls.EventCompleted {
				d := s.talkTime()
				ev.DurationSeconds = &d
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// talkTime draws whole seconds in [MinDuration, MaxDuration).
func (s *Simulator) talkTime() int {
	lo := int(s.cfg.MinDuration / time.Second)
	hi := int(s.cfg.MaxDuration / time.Second)
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Intn(hi-lo)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
