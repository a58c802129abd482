// Package cache holds the short-lived "seen before" marks used to count a
// reader's view or visit once per browsing session.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Deduper remembers keys for a limited time
type Deduper interface {
	// FirstSeen marks key and reports whether it was unmarked before the call
	FirstSeen(ctx context.Context, key string) (bool, error)
	// Forget removes the mark so the next FirstSeen reports true again
	Forget(ctx context.Context, key string) error
}

// MemoryDeduper keeps marks in a bounded in-process LRU whose entries expire after ttl.
// Marks are lost on restart and are not shared between replicas.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewMemoryDeduper creates an in-process deduper holding at most size keys
func NewMemoryDeduper(size int, ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// FirstSeen marks key and reports whether it was new
func (d *MemoryDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Peek honours expiry; Contains does not
	if _, found := d.seen.Peek(key); found {
		return false, nil
	}
	d.seen.Add(key, struct{}{})
	return true, nil
}

// Forget removes key
func (d *MemoryDeduper) Forget(ctx context.Context, key string) error {
	d.seen.Remove(key)
	return nil
}

// RedisDeduper keeps marks in Redis so every replica shares them
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a Redis-backed deduper. Keys are namespaced by prefix.
func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

// FirstSeen sets the key with SET NX and reports whether it was created
func (d *RedisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s: %w", key, err)
	}
	return ok, nil
}

// Forget deletes the key
func (d *RedisDeduper) Forget(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}
