package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Debouncer suppresses repeats of a key within a cooldown window.
type Debouncer interface {
	// Allow reports whether key may fire now, and if so opens its cooldown window.
	Allow(ctx context.Context, key string, cooldown time.Duration) (bool, error)
}

// MemoryDebouncer keeps cooldown deadlines in process memory
type MemoryDebouncer struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryDebouncer() *MemoryDebouncer {
	return &MemoryDebouncer{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string, cooldown time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if until, ok := d.expires[key]; ok && now.Before(until) {
		return false, nil
	}

	d.expires[key] = now.Add(cooldown)
	d.evictLocked(now)
	return true, nil
}

// evictLocked drops expired windows once the map grows
func (d *MemoryDebouncer) evictLocked(now time.Time) {
	if len(d.expires) < 1024 {
		return
	}
	for k, until := range d.expires {
		if !now.Before(until) {
			delete(d.expires, k)
		}
	}
}

// RedisDebouncer shares cooldown windows across instances with SET NX PX.
type RedisDebouncer struct {
	client redis.UniversalClient
}

func NewRedisDebouncer(client redis.UniversalClient) *RedisDebouncer {
	return &RedisDebouncer{client: client}
}

func (d *RedisDebouncer) Allow(ctx context.Context, key string, cooldown time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("debounce %s: %w", key, err)
	}
	return ok, nil
}
