package ctverify

import (
	"sync"
	"time"
)

// ttlCache is a minimal in-process TTL cache to trim log-list reads on hot
// paths. Lazy expiration on Get.
type ttlCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]cacheEntry[V]
}

type cacheEntry[V any] struct {
	val V
	exp time.Time
}

func newTTLCache[K comparable, V any]() *ttlCache[K, V] {
	return &ttlCache[K, V]{data: make(map[K]cacheEntry[V])}
}

// Get returns the value and true if found and not expired; otherwise zero
// value and false.
func (t *ttlCache[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (t *ttlCache[K, V]) Set(k K, v V, ttl time.Duration) {
	t.mu.Lock()
	t.data[k] = cacheEntry[V]{val: v, exp: time.Now().Add(ttl)}
	t.mu.Unlock()
}
