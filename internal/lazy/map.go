package lazy

import (
	"slices"
	"sync"

	"github.com/hupe1980/lazyvec/model"
)

// Entry is one key/reference pair of a Map.
type Entry[T any] struct {
	Key uint32
	Ref *Ref[T]
}

// Map is an ordered collection of references keyed by uint32.
// It is safe for concurrent use.
type Map[T any] struct {
	mu   sync.RWMutex
	refs map[uint32]*Ref[T]
}

// NewMap returns an empty Map.
func NewMap[T any]() *Map[T] {
	return &Map[T]{refs: make(map[uint32]*Ref[T])}
}

// Put stores ref under key, replacing any previous entry.
func (m *Map[T]) Put(key uint32, ref *Ref[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == nil {
		m.refs = make(map[uint32]*Ref[T])
	}
	m.refs[key] = ref
}

// Get returns the reference stored under key.
func (m *Map[T]) Get(key uint32) (*Ref[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.refs[key]
	return ref, ok
}

// Delete removes key and reports whether it was present.
func (m *Map[T]) Delete(key uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.refs[key]
	delete(m.refs, key)
	return ok
}

// Len returns the number of entries.
func (m *Map[T]) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refs)
}

// Keys returns the keys in ascending order.
func (m *Map[T]) Keys() []uint32 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	keys := make([]uint32, 0, len(m.refs))
	for k := range m.refs {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Entries returns a key-ordered copy of the entries.
func (m *Map[T]) Entries() []Entry[T] {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	out := make([]Entry[T], 0, len(m.refs))
	for k, ref := range m.refs {
		out = append(out, Entry[T]{Key: k, Ref: ref})
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry[T]) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// Range calls fn for each entry in key order until fn returns false.
// fn runs without the map lock held.
func (m *Map[T]) Range(fn func(key uint32, ref *Ref[T]) bool) {
	for _, e := range m.Entries() {
		if !fn(e.Key, e.Ref) {
			return
		}
	}
}

// Advance returns a copy of m whose references are owned by version.
// See Advance.
func (m *Map[T]) Advance(version model.Hash) *Map[T] {
	out := NewMap[T]()
	for _, e := range m.Entries() {
		out.refs[e.Key] = Advance(e.Ref, version)
	}
	return out
}
