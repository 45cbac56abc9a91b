package counter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dailyKeyPrefix = "billing:counters:"
	guardKeyPrefix = "billing:counters:guard:"

	// guardTTL outlives provider redelivery windows and the retry schedule.
	guardTTL = 30 * 24 * time.Hour
	dailyTTL = 90 * 24 * time.Hour
)

// incrementOnce sets the guard key and bumps the hash field in one step, so a
// retried event can never count twice.
var incrementOnce = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'EX', ARGV[1]) then
	redis.call('HINCRBY', KEYS[2], ARGV[2], 1)
	redis.call('EXPIRE', KEYS[2], ARGV[3])
	return 1
end
return 0
`)

// DailyKey returns the Redis hash that holds the counters of day (UTC).
func DailyKey(day time.Time) string {
	return dailyKeyPrefix + day.UTC().Format("2006-01-02")
}

// RedisCounter keeps idempotent daily counters in Redis hashes.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

// IncrementOnce bumps counter name for the day of at, at most once per
// idempotency key. It reports whether the increment was applied.
func (c *RedisCounter) IncrementOnce(ctx context.Context, name, idempotencyKey string, at time.Time) (bool, error) {
	guard := guardKeyPrefix + name + ":" + idempotencyKey
	res, err := incrementOnce.Run(ctx, c.rdb,
		[]string{guard, DailyKey(at)},
		int64(guardTTL/time.Second), name, int64(dailyTTL/time.Second),
	).Int()
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", name, err)
	}
	return res == 1, nil
}

// DailyCounts returns all counters recorded for the day of day.
func (c *RedisCounter) DailyCounts(ctx context.Context, day time.Time) (map[string]int64, error) {
	data, err := c.rdb.HGetAll(ctx, DailyKey(day)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// MemoryCounter is the in-process variant used with DB_DRIVER=memory.
type MemoryCounter struct {
	mu     sync.Mutex
	guards map[string]struct{}
	days   map[string]map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		guards: make(map[string]struct{}),
		days:   make(map[string]map[string]int64),
	}
}

func (c *MemoryCounter) IncrementOnce(_ context.Context, name, idempotencyKey string, at time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	guard := name + ":" + idempotencyKey
	if _, ok := c.guards[guard]; ok {
		return false, nil
	}
	c.guards[guard] = struct{}{}

	key := DailyKey(at)
	if c.days[key] == nil {
		c.days[key] = make(map[string]int64)
	}
	c.days[key][name]++
	return true, nil
}

func (c *MemoryCounter) DailyCounts(_ context.Context, day time.Time) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.days[DailyKey(day)]))
	for k, v := range c.days[DailyKey(day)] {
		out[k] = v
	}
	return out, nil
}
