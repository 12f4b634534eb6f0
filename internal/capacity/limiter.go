// Package capacity caps concurrently active calls per account.
package capacity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var acquireScript = redis.NewScript(`
-- KEYS[1] = counter key
-- ARGV[1] = limit (int)
-- ARGV[2] = ttl_ms (int)
--
-- Returns:
--  1 if acquired
--  0 if rejected (limit reached)
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
elseif redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end

if current > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

var releaseScript = redis.NewScript(`
-- KEYS[1] = counter key
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// RedisLimiter shares the cap across API instances.
//
// Safety properties:
// - Atomic acquire using Lua.
// - TTL bounds slots leaked by a crashed process.
type RedisLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
}

// NewRedisLimiter returns a limiter allowing limit active calls per account.
// A limit <= 0 disables the cap.
func NewRedisLimiter(rdb redis.Scripter, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func Key(accountID string) string {
	return fmt.Sprintf("voice:account:%s:active", accountID)
}

func (l *RedisLimiter) Acquire(ctx context.Context, accountID string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	if accountID == "" {
		return false, fmt.Errorf("capacity: account id is required")
	}
	res, err := acquireScript.Run(ctx, l.rdb, []string{Key(accountID)}, l.limit, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("capacity acquire: %w", err)
	}
	return res == 1, nil
}

func (l *RedisLimiter) Release(ctx context.Context, accountID string) error {
	if l.limit <= 0 || accountID == "" {
		return nil
	}
	if _, err := releaseScript.Run(ctx, l.rdb, []string{Key(accountID)}).Result(); err != nil {
		return fmt.Errorf("capacity release: %w", err)
	}
	return nil
}

// MemoryLimiter enforces the cap within one process.
type MemoryLimiter struct {
	limit int

	mu     sync.Mutex
	active map[string]int
}

func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, active: make(map[string]int)}
}

func (l *MemoryLimiter) Acquire(ctx context.Context, accountID string) (bool, error) {
	_ = ctx
	if l.limit <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[accountID] >= l.limit {
		return false, nil
	}
	l.active[accountID]++
	return true, nil
}

func (l *MemoryLimiter) Release(ctx context.Context, accountID string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := l.active[accountID]; n > 1 {
		l.active[accountID] = n - 1
	} else {
		delete(l.active, accountID)
	}
	return nil
}

// Active returns the account's current slot count.
func (l *MemoryLimiter) Active(accountID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[accountID]
}
