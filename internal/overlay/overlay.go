// Package overlay holds optimistic pending mutations that reads consult
// before falling back to authoritative state.
package overlay

import "sync"

// Token identifies one Put. Drop only removes the entry if it still holds
// the value written by that Put, so a slow failing write cannot clear a
// newer one.
type Token uint64

type entry[V any] struct {
	value V
	token Token
}

type Overlay[K comparable, V any] struct {
	mu      sync.RWMutex
	next    Token
	pending map[K]entry[V]
}

func New[K comparable, V any]() *Overlay[K, V] {
	return &Overlay[K, V]{pending: map[K]entry[V]{}}
}

func (o *Overlay[K, V]) Put(k K, v V) Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.pending[k] = entry[V]{value: v, token: o.next}
	return o.next
}

// Drop clears k when its entry was written with token. It reports whether
// anything was removed.
func (o *Overlay[K, V]) Drop(k K, token Token) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.pending[k]
	if !ok || e.token != token {
		return false
	}
	delete(o.pending, k)
	return true
}

// Clear removes k unconditionally, used when fresh authoritative data
// arrives.
func (o *Overlay[K, V]) Clear(k K) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, k)
}

func (o *Overlay[K, V]) Get(k K) (V, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.pending[k]
	return e.value, ok
}

// Apply returns the pending value for k, or authoritative when none is
// pending.
func (o *Overlay[K, V]) Apply(k K, authoritative V) V {
	if v, ok := o.Get(k); ok {
		return v
	}
	return authoritative
}

func (o *Overlay[K, V]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.pending)
}
