package calls

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type recordKey struct {
	accountID string
	callID    string
}

// record guards one call; its mutex serializes writers and gives readers a consistent copy.
type record struct {
	mu   sync.Mutex
	call Call
}

func (r *record) snapshot() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.call.Clone()
}

// MemoryStore keeps calls in process memory, indexed by (account, call) with a
// per-account insertion-ordered index for listing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*record
	byAcct  map[string][]*record
	seq     int64

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]*record),
		byAcct:  make(map[string][]*record),
		clock:   time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, c Call) (Call, error) {
	_ = ctx
	k := recordKey{c.AccountID, c.CallID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[k]; exists {
		return Call{}, ErrConflict
	}
	s.seq++
	c = c.Clone()
	c.Seq = s.seq
	r := &record{call: c}
	s.records[k] = r
	s.byAcct[c.AccountID] = append(s.byAcct[c.AccountID], r)
	return c.Clone(), nil
}

func (s *MemoryStore) lookup(accountID, callID string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[recordKey{accountID, callID}]
}

func (s *MemoryStore) Get(ctx context.Context, accountID, callID string) (Call, error) {
	_ = ctx
	r := s.lookup(accountID, callID)
	if r == nil {
		return Call{}, ErrNotFound
	}
	return r.snapshot(), nil
}

func (s *MemoryStore) List(ctx context.Context, accountID string, offset, limit int) ([]Call, int, error) {
	_ = ctx
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", ErrValidation)
	}
	s.mu.RLock()
	all := s.byAcct[accountID]
	total := len(all)
	var window []*record
	if offset < total && limit > 0 {
		end := min(offset+limit, total)
		window = append(window, all[offset:end]...)
	}
	s.mu.RUnlock()

	out := make([]Call, 0, len(window))
	for _, r := range window {
		out = append(out, r.snapshot())
	}
	return out, total, nil
}

func (s *MemoryStore) Update(ctx context.Context, accountID, callID string, fn UpdateFunc) (Call, error) {
	_ = ctx
	r := s.lookup(accountID, callID)
	if r == nil {
		return Call{}, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	working := r.call.Clone()
	changed, err := fn(&working)
	if err != nil {
		return Call{}, err
	}
	if changed {
		keepImmutable(&working, r.call)
		working.UpdatedAt = s.clock().UTC()
		r.call = working
	}
	return r.call.Clone(), nil
}

func (s *MemoryStore) ListCreatedBetween(ctx context.Context, accountID string, from, to time.Time) ([]Call, error) {
	_ = ctx
	s.mu.RLock()
	all := append([]*record(nil), s.byAcct[accountID]...)
	s.mu.RUnlock()

	out := make([]Call, 0)
	for _, r := range all {
		c := r.snapshot()
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
