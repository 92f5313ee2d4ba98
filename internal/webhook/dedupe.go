package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "webhook:seen:"

// Deduper remembers delivered message ids so a redelivery is acknowledged
// without being applied twice.
type Deduper interface {
	// Claim reports false when id was already claimed within ttl.
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Release forgets id so a failed delivery can be retried.
	Release(ctx context.Context, id string) error
}

type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, seenKeyPrefix+id, "1", ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, id string) error {
	return d.client.Del(ctx, seenKeyPrefix+id).Err()
}

// MemoryDeduper is the single-instance Deduper used in local mode.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(_ context.Context, id string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if until, ok := d.seen[id]; ok && now.Before(until) {
		return false, nil
	}
	d.seen[id] = now.Add(ttl)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}
