package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// resultCache holds fetched transcripts: L1 in-memory + L2 Redis.
// L1 is lost on restart; L2 is shared between replicas. Swapped atomically so
// MCP and HTTP handlers may read it while main closes it.
var resultCache atomic.Pointer[tieredCache]

// Transcripts larger than this skip L1 and live only in Redis.
const maxL1EntryBytes = 1 << 20

// Cache metrics — atomic counters for thread-safe access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// tieredCache implements L1 (memory) + L2 (Redis) caching.
type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stop            chan struct{}
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool { return !now.Before(e.expiresAt) }

// InitCache sets up the 2-tier cache. Call after Init().
// redisURL can be empty to disable L2; ttl <= 0 disables caching entirely.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	CloseCache()
	if ttl <= 0 {
		slog.Info("cache: disabled")
		return
	}

	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval, stop: make(chan struct{})}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	resultCache.Store(c)
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	// Start L1 cleanup goroutine
	go c.cleanupLoop()
}

// CloseCache stops the cleanup loop and closes the Redis connection, if any.
func CloseCache() {
	c := resultCache.Swap(nil)
	if c == nil {
		return
	}
	close(c.stop)
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			slog.Debug("cache: redis close failed", slog.Any("error", err))
		}
	}
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("yt:%x", hash[:12]) // 24-char hex prefix
}

// CacheGet tries L1, then L2. On L2 hit, populates L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := resultCache.Load()
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	// L1 check
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if !entry.expired(time.Now()) {
			slog.Debug("cache: L1 hit", slog.String("key", key))
			cacheHits.Add(1)
			return entry.data, true
		}
		c.l1.Delete(key) // expired
	}

	// L2 check
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			c.storeL1(key, data)
			return data, true
		}
		if err != redis.Nil {
			slog.Debug("cache: L2 get failed", slog.Any("error", err))
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// CacheSet stores value in L1 (unless oversized) and L2.
func CacheSet(ctx context.Context, key string, data []byte) {
	c := resultCache.Load()
	if c == nil {
		return
	}

	c.storeL1(key, data)

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

func (c *tieredCache) storeL1(key string, data []byte) {
	if len(data) > maxL1EntryBytes {
		return
	}
	c.makeRoom()
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})
}

// makeRoom keeps L1 under maxEntries ahead of a store. Expired transcripts
// go first, then the ones nearest expiry, which are the oldest fetches.
func (c *tieredCache) makeRoom() {
	if c.maxEntries <= 0 {
		return
	}
	for live := c.sweep(time.Now()); live >= c.maxEntries; live-- {
		key, ok := c.nextToExpire()
		if !ok {
			return
		}
		c.l1.Delete(key)
	}
}

// sweep drops expired L1 entries and reports how many are left.
func (c *tieredCache) sweep(now time.Time) int {
	live := 0
	c.l1.Range(func(key, val any) bool {
		if val.(*cacheEntry).expired(now) {
			c.l1.Delete(key)
		} else {
			live++
		}
		return true
	})
	return live
}

func (c *tieredCache) nextToExpire() (any, bool) {
	var (
		key   any
		first time.Time
	)
	c.l1.Range(func(k, val any) bool {
		e := val.(*cacheEntry)
		if key == nil || e.expiresAt.Before(first) {
			key, first = k, e.expiresAt
		}
		return true
	})
	return key, key != nil
}

func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			if n := c.sweep(now); n > 0 {
				slog.Debug("cache: sweep", slog.Int("live", n))
			}
		}
	}
}
