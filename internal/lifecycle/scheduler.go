// Package lifecycle drives calls through their state machine from dialer progress.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voice-platform/internal/calls"
	"voice-platform/internal/telephony"
	"voice-platform/pkg/logger"
)

// Applier is the guarded write path events are applied through.
type Applier interface {
	ApplyEvent(ctx context.Context, accountID, callID string, ev calls.Event) (calls.Call, bool, error)
}

var ErrClosed = errors.New("lifecycle: scheduler closed")

type taskKey struct {
	accountID string
	callID    string
}

// Scheduler runs one task per call. A task consumes the dialer's event stream strictly
// in order and ends when the call is terminal, the stream closes, or it is stopped.
type Scheduler struct {
	applier Applier
	dialer  telephony.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tasks  map[taskKey]context.CancelFunc
	closed bool
}

func NewScheduler(applier Applier, dialer telephony.Dialer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		applier: applier,
		dialer:  dialer,
		ctx:     ctx,
		cancel:  cancel,
		tasks:   make(map[taskKey]context.CancelFunc),
	}
}

// Launch dials c and starts its task. It returns once the dialer accepted the call.
// The task outlives ctx; only the logger is carried over.
func (s *Scheduler) Launch(ctx context.Context, c calls.Call) error {
	k := taskKey{c.AccountID, c.CallID}
	log := logger.From(ctx).With("call_id", c.CallID, "account_id", c.AccountID, "dialer", s.dialer.Name())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, running := s.tasks[k]; running {
		s.mu.Unlock()
		return fmt.Errorf("lifecycle: call %s already running", c.CallID)
	}
	taskCtx, cancel := context.WithCancel(logger.With(s.ctx, log))
	s.tasks[k] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	events, err := s.dialer.Dial(taskCtx, telephony.RequestFor(c))
	if err != nil {
		s.finish(k)
		cancel()
		s.wg.Done()
		return fmt.Errorf("lifecycle: dial: %w", err)
	}

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.finish(k)
		s.run(taskCtx, c, events)
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context, c calls.Call, events <-chan calls.Event) {
	log := logger.From(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debug("call task stopped")
			return
		case ev, ok := <-events:
			if !ok {
				log.Debug("dialer stream closed")
				return
			}
			cur, _, err := s.applier.ApplyEvent(ctx, c.AccountID, c.CallID, ev)
			if errors.Is(err, calls.ErrNotFound) {
				log.Warn("call vanished, stopping task")
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("apply call event failed", "event", ev.Kind, "err", err)
				continue
			}
			if cur.Status.IsTerminal() {
				return
			}
		}
	}
}

func (s *Scheduler) finish(k taskKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, k)
}

// Stop cancels the call's task if one is running.
func (s *Scheduler) Stop(accountID, callID string) {
	s.mu.Lock()
	cancel, ok := s.tasks[taskKey{accountID, callID}]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Active reports the number of running tasks.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels every task and waits for them to return or ctx to expire.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
