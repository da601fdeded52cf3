package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ielts-prep/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("result not cached")

// CachedResult is a graded session kept after its live entry is gone.
type CachedResult struct {
	UserID int64                    `json:"user_id"`
	Result models.SessionResultView `json:"result"`
}

type ResultCache interface {
	Put(ctx context.Context, r CachedResult) error
	Get(ctx context.Context, sessionID string) (*CachedResult, error)
}

// ── Redis ─────────────────────────────────────────────────

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func resultKey(sessionID string) string {
	return "practice:result:" + sessionID
}

func (c *RedisCache) Put(ctx context.Context, r CachedResult) error {
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(r.Result.SessionID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache result %s: %w", r.Result.SessionID, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (*CachedResult, error) {
	b, err := c.client.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached result %s: %w", sessionID, err)
	}
	var r CachedResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode cached result %s: %w", sessionID, err)
	}
	return &r, nil
}

// ── In-memory ─────────────────────────────────────────────

// MemoryCache is used when no Redis address is configured.
type MemoryCache struct {
	mu      sync.Mutex
	results map[string]memoryItem
	ttl     time.Duration
	now     func() time.Time
}

type memoryItem struct {
	result  CachedResult
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{results: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

// Put stores r and drops every expired entry, so the map stays bounded by
// the results written within one TTL.
func (c *MemoryCache) Put(ctx context.Context, r CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.ttl > 0 {
		for id, item := range c.results {
			if now.After(item.expires) {
				delete(c.results, id)
			}
		}
	}
	c.results[r.Result.SessionID] = memoryItem{result: r, expires: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *MemoryCache) Get(ctx context.Context, sessionID string) (*CachedResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.results[sessionID]
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.ttl > 0 && c.now().After(item.expires) {
		delete(c.results, sessionID)
		return nil, ErrCacheMiss
	}
	r := item.result
	return &r, nil
}
