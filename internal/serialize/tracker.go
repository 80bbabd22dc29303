package serialize

import "sync/atomic"

// Mutable is implemented by values that track unflushed mutations.
// Dirty values are rewritten on flush and never evicted from the registry.
type Mutable interface {
	// Generation returns a counter that grows with every mutation.
	Generation() uint64
	// Dirty reports whether the value changed since the last flush.
	Dirty() bool
	// MarkClean records that generation gen is persisted.
	MarkClean(gen uint64)
}

// Tracker implements Mutable and is meant to be embedded.
// The zero value is dirty.
type Tracker struct {
	gen     atomic.Uint64
	flushed atomic.Uint64
}

// Touch records a mutation.
func (t *Tracker) Touch() {
	t.gen.Add(1)
}

// Generation implements Mutable.
func (t *Tracker) Generation() uint64 {
	return t.gen.Load() + 1
}

// Dirty implements Mutable.
func (t *Tracker) Dirty() bool {
	return t.Generation() != t.flushed.Load()
}

// MarkClean implements Mutable. Mutations after gen keep the value dirty.
func (t *Tracker) MarkClean(gen uint64) {
	for {
		cur := t.flushed.Load()
		if cur >= gen || t.flushed.CompareAndSwap(cur, gen) {
			return
		}
	}
}
