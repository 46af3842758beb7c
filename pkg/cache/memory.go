package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m memoryItem) expired() bool {
	return time.Now().After(m.expireAt)
}

// MemoryCache is an in-process Service used when Redis is not configured.
// Values are stored as JSON so Get behaves identically to the Redis backend.
type MemoryCache struct {
	mu     sync.RWMutex
	data   map[string]memoryItem
	ticker *time.Ticker
	done   chan struct{}
}

// NewMemoryCache creates an in-memory cache with a background sweeper.
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		data:   make(map[string]memoryItem),
		ticker: time.NewTicker(5 * time.Minute),
		done:   make(chan struct{}),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	mc.mu.Lock()
	mc.data[key] = memoryItem{data: b, expireAt: time.Now().Add(expiration)}
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.RLock()
	item, ok := mc.data[key]
	mc.mu.RUnlock()

	if !ok || item.expired() {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired() {
			return true, nil
		}
	}
	return false, nil
}

// Close stops the background sweeper.
func (mc *MemoryCache) Close() error {
	mc.ticker.Stop()
	close(mc.done)
	return nil
}

func (mc *MemoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
			now := time.Now()
			mc.mu.Lock()
			for key, item := range mc.data {
				if now.After(item.expireAt) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

var _ Service = (*MemoryCache)(nil)
