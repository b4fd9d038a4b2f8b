package xps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCatalogTTL is how long a fetched catalog stays cached.
const DefaultCatalogTTL = 6 * time.Hour

// CatalogStore caches raw provider catalogs by key.
type CatalogStore interface {
	Load(ctx context.Context, key string) ([]ServiceEntry, bool, error)
	Save(ctx context.Context, key string, entries []ServiceEntry) error
}

type memoryItem struct {
	entries []ServiceEntry
	expires time.Time
}

// MemoryStore is a process-local CatalogStore.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]memoryItem
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl uses DefaultCatalogTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryItem),
	}
}

// Load returns the cached entries for key, if present and not expired.
func (s *MemoryStore) Load(_ context.Context, key string) ([]ServiceEntry, bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || s.now().After(item.expires) {
		return nil, false, nil
	}
	return item.entries, true, nil
}

// Save caches entries under key.
func (s *MemoryStore) Save(_ context.Context, key string, entries []ServiceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{entries: entries, expires: s.now().Add(s.ttl)}
	return nil
}

// RedisStore is a CatalogStore shared between instances through Redis.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A non-positive ttl uses DefaultCatalogTTL.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the cached entries for key. A missing key is not an error.
func (s *RedisStore) Load(ctx context.Context, key string) ([]ServiceEntry, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entries []ServiceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog %s: %w", key, err)
	}
	return entries, true, nil
}

// Save caches entries under key with the store TTL.
func (s *RedisStore) Save(ctx context.Context, key string, entries []ServiceEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var (
	_ CatalogStore = (*MemoryStore)(nil)
	_ CatalogStore = (*RedisStore)(nil)
)
