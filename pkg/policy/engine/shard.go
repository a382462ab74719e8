package engine

import "sync"

// shardCount is the number of lock shards. A power of two keeps the
// shard pick a mask instead of a modulo.
const shardCount = 32

// shardedMap is a string-keyed map split across fixed shards, each
// guarded by its own RWMutex. Readers and writers on different shards
// never contend; operations on the same key are serialized by the
// owning shard's lock.
type shardedMap[V any] struct {
	shards [shardCount]mapShard[V]
}

type mapShard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// newShardedMap creates an empty sharded map.
func newShardedMap[V any]() *shardedMap[V] {
	m := &shardedMap[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

// shard picks the owning shard for a key using FNV-1a.
func (m *shardedMap[V]) shard(key string) *mapShard[V] {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	hash := uint32(offset32)
	for i := 0; i < len(key); i++ {
		hash ^= uint32(key[i])
		hash *= prime32
	}
	return &m.shards[hash&(shardCount-1)]
}

// Get returns the value stored under key.
func (m *shardedMap[V]) Get(key string) (V, bool) {
	s := m.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *shardedMap[V]) Set(key string, value V) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes key and reports whether it was present.
func (m *shardedMap[V]) Delete(key string) bool {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return ok
}

// Update atomically transforms the value under key. fn receives the
// current value (and whether it exists) and returns the new value and
// whether to keep the entry. The shard lock is held across fn, so fn
// must not touch the map.
func (m *shardedMap[V]) Update(key string, fn func(current V, exists bool) (V, bool)) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.items[key]
	next, keep := fn(current, exists)
	if keep {
		s.items[key] = next
	} else if exists {
		delete(s.items, key)
	}
}

// Len returns the total number of entries across all shards.
func (m *shardedMap[V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every entry until fn returns false. Each shard
// is read-locked only while it is being walked; entries added or
// removed concurrently may or may not be visited.
func (m *shardedMap[V]) Range(fn func(key string, value V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Clear removes all entries.
func (m *shardedMap[V]) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}
