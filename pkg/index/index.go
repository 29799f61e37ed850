package index

import "sync"

// NameIndex memoizes display names of related records by record id. It lives
// for a single resolve call; schemas and names may change between runs, so
// nothing is persisted.
type NameIndex struct {
	mu      sync.RWMutex
	names   map[string]string
	misses  map[string]bool
	lookups int
	hits    int
}

func NewNameIndex() *NameIndex {
	return &NameIndex{
		names:  make(map[string]string),
		misses: make(map[string]bool),
	}
}

// Get returns the cached name and whether the id has been resolved before,
// successfully or not. A failed or title-less lookup is cached as a miss so it
// is not retried within the same call.
func (idx *NameIndex) Get(id string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.lookups++
	if name, ok := idx.names[id]; ok {
		idx.hits++
		return name, true
	}
	if idx.misses[id] {
		idx.hits++
		return "", true
	}
	return "", false
}

func (idx *NameIndex) Set(id, name string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if name == "" {
		idx.misses[id] = true
		return
	}
	idx.names[id] = name
	delete(idx.misses, id)
}

// Stats reports lookups and cache hits so far.
func (idx *NameIndex) Stats() (lookups, hits int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lookups, idx.hits
}

// Len returns the number of resolved names.
func (idx *NameIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.names)
}
