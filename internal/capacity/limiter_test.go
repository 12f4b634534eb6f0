package capacity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterScripter emulates the acquire/release scripts against an in-memory counter.
type counterScripter struct {
	redis.Scripter

	mu       sync.Mutex
	counters map[string]int64
	ttls     map[string]int64
}

func (s *counterScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return s.eval(keys, args)
}

func (s *counterScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.eval(keys, args)
}

func (s *counterScripter) eval(keys []string, args []interface{}) *redis.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keys[0]
	if len(args) == 0 {
		s.counters[k]--
		if s.counters[k] <= 0 {
			delete(s.counters, k)
		}
		return redis.NewCmdResult(int64(1), nil)
	}
	limit := int64(args[0].(int))
	s.ttls[k] = args[1].(int64)
	s.counters[k]++
	if s.counters[k] > limit {
		s.counters[k]--
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(int64(1), nil)
}

func TestScriptsInitialized(t *testing.T) {
	if acquireScript == nil || releaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestKey(t *testing.T) {
	if got := Key("AC1"); got != "voice:account:AC1:active" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRedisLimiter_EnforcesCap(t *testing.T) {
	rdb := &counterScripter{counters: map[string]int64{}, ttls: map[string]int64{}}
	l := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Acquire(ctx, "AC1")
		if err != nil || !ok {
			t.Fatalf("acquire %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Acquire(ctx, "AC1"); ok {
		t.Fatalf("expected third acquire to be rejected")
	}
	if ok, _ := l.Acquire(ctx, "AC2"); !ok {
		t.Fatalf("expected other account to be unaffected")
	}
	if rdb.ttls[Key("AC1")] != time.Minute.Milliseconds() {
		t.Fatalf("expected ttl to be passed in milliseconds")
	}

	if err := l.Release(ctx, "AC1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := l.Acquire(ctx, "AC1"); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestRedisLimiter_DisabledCap(t *testing.T) {
	l := NewRedisLimiter(nil, 0, 0)
	ok, err := l.Acquire(context.Background(), "AC1")
	if err != nil || !ok {
		t.Fatalf("expected disabled cap to admit, got ok=%v err=%v", ok, err)
	}
	if err := l.Release(context.Background(), "AC1"); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(1)
	ctx := context.Background()
	if ok, _ := l.Acquire(ctx, "AC1"); !ok {
		t.Fatalf("expected first acquire")
	}
	if ok, _ := l.Acquire(ctx, "AC1"); ok {
		t.Fatalf("expected cap to reject")
	}
	_ = l.Release(ctx, "AC1")
	_ = l.Release(ctx, "AC1")
	if l.Active("AC1") != 0 {
		t.Fatalf("expected release to floor at zero, got %d", l.Active("AC1"))
	}
}
