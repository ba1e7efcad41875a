package store

import (
	"sync"

	"github.com/rzbill/quill/internal/index"
)

// memIndex is the process-local cache of key -> entry. It is authoritative
// during normal operation and repopulated from the persistent index on miss
// or, when configured, rebuilt fully at open.
type memIndex struct {
	mu sync.RWMutex
	m  map[string]index.Entry
}

func newMemIndex() *memIndex {
	return &memIndex{m: make(map[string]index.Entry)}
}

func (mi *memIndex) get(key []byte) (index.Entry, bool) {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	e, ok := mi.m[string(key)]
	return e, ok
}

func (mi *memIndex) put(key []byte, e index.Entry) {
	mi.mu.Lock()
	mi.m[string(key)] = e
	mi.mu.Unlock()
}

// putBatch applies a whole flushed batch under one write lock.
func (mi *memIndex) putBatch(keys [][]byte, entries []index.Entry) {
	mi.mu.Lock()
	for i, key := range keys {
		mi.m[string(key)] = entries[i]
	}
	mi.mu.Unlock()
}

func (mi *memIndex) delete(key []byte) {
	mi.mu.Lock()
	delete(mi.m, string(key))
	mi.mu.Unlock()
}

func (mi *memIndex) len() int {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return len(mi.m)
}
