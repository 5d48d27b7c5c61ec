// Package lock provides in-process keyed mutual exclusion. The payment
// service uses it to serialize concurrent webhook deliveries for the same
// payment link while leaving unrelated payments unblocked.
package lock

import "sync"

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex hands out one mutex per key. Mutexes are reference counted and
// released once no goroutine holds or waits on the key.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedLock),
	}
}

// Lock acquires the mutex for key and returns the matching unlock function
func (km *KeyedMutex) Lock(key string) func() {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &keyedLock{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		km.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
