// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache provides a small time-bounded memoization cache.
// Entries are {key, value, expiry} triples; time comes from an injected Clock
// so expiry is deterministic in tests.
package cache

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value  V
	expiry time.Time
}

// TTL memoizes values per key for a fixed time window.
// Expiring an entry only forgets it; values handed out earlier stay usable.
type TTL[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock Clock
	items map[K]entry[V]
}

// NewTTL creates a cache whose entries live for ttl. A nil clock means SystemClock.
func NewTTL[K comparable, V any](ttl time.Duration, clock Clock) *TTL[K, V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTL[K, V]{
		ttl:   ttl,
		clock: clock,
		items: make(map[K]entry[V]),
	}
}

// Get returns the live value for key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ent, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(ent.expiry) {
		delete(c.items, key)
		return zero, false
	}
	return ent.value, true
}

// Put stores value under key, starting a fresh expiry window.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiry: c.clock.Now().Add(c.ttl)}
}

// GetOrCreate returns the cached value for key or calls create and caches its result.
// Errors are not cached.
func (c *TTL[K, V]) GetOrCreate(key K, create func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := create()
	if err != nil {
		return v, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// Len reports the number of live entries.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, ent := range c.items {
		if !now.Before(ent.expiry) {
			delete(c.items, k)
			continue
		}
		n++
	}
	return n
}

// Delete forgets key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear forgets every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}
