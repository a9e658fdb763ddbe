package popularity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds the single ranked slot
type Store interface {
	// Load returns the stored identifiers and whether the slot is filled
	Load(ctx context.Context) ([]string, bool, error)
	// Save replaces the slot; a zero ttl keeps it until invalidated
	Save(ctx context.Context, keys []string, ttl time.Duration) error
	// Invalidate empties the slot
	Invalidate(ctx context.Context) error
}

// MemoryStore keeps the slot in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	keys      []string
	filled    bool
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Load(ctx context.Context) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.filled {
		return nil, false, nil
	}
	if !m.expiresAt.IsZero() && !m.now().Before(m.expiresAt) {
		return nil, false, nil
	}
	return m.keys, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, keys []string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = append([]string(nil), keys...)
	m.filled = true
	m.expiresAt = time.Time{}
	if ttl > 0 {
		m.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = nil
	m.filled = false
	return nil
}

// RedisStore keeps the slot in Redis so several proxy processes share one
// ranking
type RedisStore struct {
	client *redis.Client
	key    string
}

// DefaultRedisKey names the slot when no key is configured
const DefaultRedisKey = "metadata-proxy:popular-tables"

// NewRedisStore creates a store around an existing client
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisStoreWithAddr connects to addr and verifies the connection
func NewRedisStoreWithAddr(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStore(client, ""), nil
}

func (r *RedisStore) Load(ctx context.Context) ([]string, bool, error) {
	value, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var keys []string
	if err := json.Unmarshal(value, &keys); err != nil {
		return nil, false, err
	}
	return keys, true, nil
}

func (r *RedisStore) Save(ctx context.Context, keys []string, ttl time.Duration) error {
	if keys == nil {
		keys = []string{}
	}
	value, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, value, ttl).Err()
}

func (r *RedisStore) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
