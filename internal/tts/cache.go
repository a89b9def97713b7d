package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores synthesized audio keyed by the exact prompt text. Prompts are
// templated from a small fixed set, so the hit rate across calls is high and
// a warm cache keeps repeat synthesis off the TTS provider entirely.
type Cache interface {
	Get(ctx context.Context, text string) ([]byte, bool)
	Put(ctx context.Context, text string, audio []byte)
}

// cacheKey content-addresses a prompt.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "tts:audio:" + hex.EncodeToString(sum[:])
}

// MemoryCache is the in-process Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	audio map[string][]byte
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{audio: make(map[string][]byte)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, text string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	audio, ok := c.audio[cacheKey(text)]
	return audio, ok
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, text string, audio []byte) {
	if len(audio) == 0 {
		return
	}
	c.mu.Lock()
	c.audio[cacheKey(text)] = audio
	c.mu.Unlock()
}

// RedisCache shares synthesized audio across restarts and replicas. Cache
// misses are harmless, so every Redis error degrades to a miss.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed cache with the given entry TTL.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, text string) ([]byte, bool) {
	audio, err := c.rdb.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		return nil, false
	}
	return audio, true
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, text string, audio []byte) {
	if len(audio) == 0 {
		return
	}
	_ = c.rdb.Set(ctx, cacheKey(text), audio, c.ttl).Err()
}

// CacheObserver receives hit/miss outcomes for cache lookups.
type CacheObserver interface {
	ObserveTTSCache(hit bool)
}

// CachingSynthesizer wraps a Synthesizer with a Cache.
type CachingSynthesizer struct {
	synth    Synthesizer
	cache    Cache
	observer CacheObserver
}

// NewCachingSynthesizer wraps synth with cache. observer may be nil.
func NewCachingSynthesizer(synth Synthesizer, cache Cache, observer CacheObserver) *CachingSynthesizer {
	return &CachingSynthesizer{synth: synth, cache: cache, observer: observer}
}

// Synthesize returns cached audio when available, synthesizing and filling
// the cache otherwise.
func (s *CachingSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if audio, ok := s.cache.Get(ctx, text); ok {
		s.observe(true)
		return audio, nil
	}
	s.observe(false)
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, text, audio)
	return audio, nil
}

func (s *CachingSynthesizer) observe(hit bool) {
	if s.observer != nil {
		s.observer.ObserveTTSCache(hit)
	}
}
