// Package redis implements the fast ephemeral store for the progress engine.
// It provides infrastructure components for high-performance cache-aside
// access to per-(player, subject) progress state.
//
// Key components:
//   - Cache: general-purpose byte/JSON caching with TTL management
//   - ProgressCache: bitset, best-hearts, and aggregate entries per pair
//   - DirtyTracker: the pending write-behind set
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when the Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when serialization/deserialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEY PREFIXES
// ══════════════════════════════════════════════════════════════════════════════

// Key prefixes for namespacing Redis keys.
const (
	// PrefixBitset is the prefix for completion-bitset entries.
	PrefixBitset = "progress:bits:"

	// PrefixBestHearts is the prefix for best-hearts entries.
	PrefixBestHearts = "progress:hearts:"

	// PrefixAggregates is the prefix for aggregate-counter entries.
	PrefixAggregates = "progress:aggr:"

	// KeyDirtySet is the set of pairs pending a snapshot sync.
	KeyDirtySet = "progress:dirty"
)

// BitsetKey generates the cache key for a pair's completion bitset.
func BitsetKey(playerID, subjectID string) string {
	return PrefixBitset + playerID + ":" + subjectID
}

// BestHeartsKey generates the cache key for a pair's best-hearts map.
func BestHeartsKey(playerID, subjectID string) string {
	return PrefixBestHearts + playerID + ":" + subjectID
}

// AggregatesKey generates the cache key for a pair's aggregate counters.
func AggregatesKey(playerID, subjectID string) string {
	return PrefixAggregates + playerID + ":" + subjectID
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache provides general-purpose caching functionality with Redis.
// It handles serialization, TTL management, and error handling.
type Cache struct {
	client *redis.Client
	config Config
}

// NewCache creates a new Cache instance with the given configuration.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{
		client: client,
		config: cfg,
	}, nil
}

// Client returns the underlying Redis client for advanced operations.
// Use with caution - prefer using Cache methods when possible.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// BASIC OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// SetBytes stores a raw byte value. A zero TTL means the entry persists
// indefinitely, which is the lifecycle of progress entries: created lazily,
// never explicitly deleted.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// GetBytes retrieves a raw byte value.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// SetJSON stores a value serialized to JSON.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJSON retrieves and deserializes a JSON value by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.GetBytes(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// SET OPERATIONS (for the dirty set)
// ══════════════════════════════════════════════════════════════════════════════

// SAdd adds members to a set.
func (c *Cache) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	return c.client.SAdd(ctx, key, members...).Err()
}

// SPopN atomically removes and returns up to n members of a set.
func (c *Cache) SPopN(ctx context.Context, key string, n int64) ([]string, error) {
	if key == "" {
		return nil, ErrCacheKeyEmpty
	}
	return c.client.SPopN(ctx, key, n).Result()
}

// SCard returns the number of members in a set.
func (c *Cache) SCard(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	return c.client.SCard(ctx, key).Result()
}

// SIsMember checks if a member exists in a set.
func (c *Cache) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}
	return c.client.SIsMember(ctx, key, member).Result()
}
