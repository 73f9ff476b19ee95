package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "webhook:modcrm:"

// Deduper remembers delivered event ids.
type Deduper interface {
	// FirstDelivery records id and reports whether it had not been seen
	// within the retention window.
	FirstDelivery(ctx context.Context, id string) (bool, error)
}

// RedisDeduper keeps delivered ids in redis with a TTL, so replicas share
// one view of what was already processed.
type RedisDeduper struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) FirstDelivery(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, dedupeKeyPrefix+id, 1, d.ttl).Result()
}

// MemoryDeduper is the single-process fallback used without redis.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) FirstDelivery(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return true, nil
}
