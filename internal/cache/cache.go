package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a keyed TTL cache. A zero ttl uses the cache default.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
	Invalidate(key string)
}

// Memory is an in-process Cache. Keys are namespaced by a version tag so a
// deploy that changes the cached shape never reads entries written by the
// previous one.
type Memory[T any] struct {
	store   *gocache.Cache
	version string
}

func NewMemory[T any](defaultTTL time.Duration, version string) *Memory[T] {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Memory[T]{
		store:   gocache.New(defaultTTL, 2*defaultTTL),
		version: version,
	}
}

func (m *Memory[T]) Version() string {
	return m.version
}

func (m *Memory[T]) Get(key string) (T, bool) {
	var zero T
	raw, ok := m.store.Get(m.key(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func (m *Memory[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(m.key(key), value, ttl)
}

func (m *Memory[T]) Invalidate(key string) {
	m.store.Delete(m.key(key))
}

// Flush drops every entry regardless of key.
func (m *Memory[T]) Flush() {
	m.store.Flush()
}

func (m *Memory[T]) key(k string) string {
	if m.version == "" {
		return k
	}
	return m.version + ":" + k
}

// Nop never stores anything.
type Nop[T any] struct{}

func (Nop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (Nop[T]) Set(string, T, time.Duration) {}

func (Nop[T]) Invalidate(string) {}
