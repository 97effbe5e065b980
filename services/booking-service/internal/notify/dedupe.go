package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers event ids. FirstSeen returns true exactly once per id.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// RedisDeduper shares seen ids across notifier replicas.
type RedisDeduper struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisDeduper {
	if prefix == "" {
		prefix = "notify:seen"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, d.prefix+":"+id, 1, d.ttl).Result()
}

// MemoryDeduper keeps the most recent ids in process.
type MemoryDeduper struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	next  int
}

func NewMemoryDeduper(capacity int) *MemoryDeduper {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryDeduper{seen: make(map[string]struct{}, capacity), order: make([]string, capacity)}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	if old := d.order[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.order[d.next] = id
	d.next = (d.next + 1) % len(d.order)
	d.seen[id] = struct{}{}
	return true, nil
}
