package sync

import gosync "sync"

// keyedMutex serializes work per key. Sync runs for the same account must
// not overlap: the upserts converge either way, but overlapping runs waste
// provider calls and corrupt the ledger's aggregate counts.
type keyedMutex struct {
	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*gosync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &gosync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
