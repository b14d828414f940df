// Package userlock serializes event processing per platform user. Events for
// different users run concurrently; two events for the same user never race
// on session state or link creation.
package userlock

import "sync"

// KeyedMutex is a set of mutexes keyed by string. Entries are created on
// first Lock and removed when no goroutine holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	waiters int
}

// New returns an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking while another goroutine holds it.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.waiters++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. Must be called by the goroutine that
// locked it.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("userlock: unlock of unlocked key " + key)
	}
	e.waiters--
	if e.waiters == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
