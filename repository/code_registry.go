package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeRegistry remembers recently issued redemption codes so a code is not
// handed out again while customers and staff may still be reading it.
type CodeRegistry interface {
	// Claim records code for ttl. It returns false when the code was
	// already claimed inside the window.
	Claim(ctx context.Context, code string, ttl time.Duration) (bool, error)
}

const (
	codeKeyPrefix        = "loyalty:redemption-code:"
	memoryPruneThreshold = 1024
)

// RedisCodeRegistry implements CodeRegistry with SET NX + TTL.
type RedisCodeRegistry struct {
	client *redis.Client
}

func NewRedisCodeRegistry(client *redis.Client) *RedisCodeRegistry {
	return &RedisCodeRegistry{client: client}
}

func (r *RedisCodeRegistry) Claim(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, codeKeyPrefix+code, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim redemption code: %w", err)
	}
	return ok, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// MemoryCodeRegistry is the single-process CodeRegistry used when Redis is
// not configured.
type MemoryCodeRegistry struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryCodeRegistry() *MemoryCodeRegistry {
	return NewMemoryCodeRegistryWithClock(time.Now)
}

func NewMemoryCodeRegistryWithClock(now func() time.Time) *MemoryCodeRegistry {
	return &MemoryCodeRegistry{claims: make(map[string]time.Time), now: now}
}

func (m *MemoryCodeRegistry) Claim(_ context.Context, code string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.claims[code]; ok && now.Before(until) {
		return false, nil
	}
	m.claims[code] = now.Add(ttl)

	if len(m.claims) >= memoryPruneThreshold {
		for c, until := range m.claims {
			if !now.Before(until) {
				delete(m.claims, c)
			}
		}
	}
	return true, nil
}
