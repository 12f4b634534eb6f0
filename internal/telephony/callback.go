package telephony

import (
	"context"
	"errors"
	"sync"

	"voice-platform/internal/calls"
)

type streamKey struct {
	accountID string
	callID    string
}

// CallbackDialer is driven by progress reports from an external backend.
// Dial opens a per-call stream; Deliver feeds it.
type CallbackDialer struct {
	buffer int

	mu      sync.Mutex
	streams map[streamKey]chan calls.Event
}

func NewCallbackDialer(buffer int) *CallbackDialer {
	if buffer <= 0 {
		buffer = 8
	}
	return &CallbackDialer{buffer: buffer, streams: make(map[streamKey]chan calls.Event)}
}

func (d *CallbackDialer) Name() string { return "callback" }

func (d *CallbackDialer) Dial(ctx context.Context, req DialRequest) (<-chan calls.Event, error) {
	if req.AccountID == "" || req.CallID == "" {
		return nil, errors.New("telephony: account id and call id are required")
	}
	k := streamKey{req.AccountID, req.CallID}
	ch := make(chan calls.Event, d.buffer)

	d.mu.Lock()
	if _, exists := d.streams[k]; exists {
		d.mu.Unlock()
		return nil, errors.New("telephony: call already dialed")
	}
	d.streams[k] = ch
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.streams, k)
		close(ch)
		d.mu.Unlock()
	}()
	return ch, nil
}

// Deliver routes ev to the call's open stream. It reports false when no stream is
// open or the stream is full.
func (d *CallbackDialer) Deliver(accountID, callID string, ev calls.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.streams[streamKey{accountID, callID}]
	if !ok {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Open returns the number of calls currently accepting reports.
func (d *CallbackDialer) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}
