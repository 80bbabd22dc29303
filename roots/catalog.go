package roots

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/hupe1980/lazyvec/model"
)

var (
	// ErrNotFound is returned when a root name has no entry.
	ErrNotFound = errors.New("roots: not found")
	// ErrConflict is returned when a compare-and-swap observes a different current value.
	ErrConflict = errors.New("roots: concurrent modification")
	// ErrInvalidRoot is returned when an Invalid file index is stored as a root.
	ErrInvalidRoot = errors.New("roots: root must be a valid file index")
)

// Catalog stores named root locations.
type Catalog interface {
	// Get returns the current root stored under name.
	Get(ctx context.Context, name string) (model.FileIndex, error)
	// CompareAndSwap replaces the root stored under name with next if the
	// current root equals prev. An Invalid prev means the name must not exist.
	CompareAndSwap(ctx context.Context, name string, prev, next model.FileIndex) error
	// List returns the sorted names of all roots.
	List(ctx context.Context) ([]string, error)
}

// MemoryCatalog is a process-local Catalog.
type MemoryCatalog struct {
	mu    sync.RWMutex
	roots map[string]model.FileIndex
}

// NewMemoryCatalog creates an empty MemoryCatalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{roots: make(map[string]model.FileIndex)}
}

func (c *MemoryCatalog) Get(_ context.Context, name string) (model.FileIndex, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.roots[name]
	if !ok {
		return model.InvalidIndex(), ErrNotFound
	}
	return idx, nil
}

func (c *MemoryCatalog) CompareAndSwap(_ context.Context, name string, prev, next model.FileIndex) error {
	if !next.IsValid() {
		return ErrInvalidRoot
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := check(c.roots, name, prev); err != nil {
		return err
	}
	c.roots[name] = next
	return nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedNames(c.roots), nil
}

func check(roots map[string]model.FileIndex, name string, prev model.FileIndex) error {
	cur, ok := roots[name]
	switch {
	case !prev.IsValid() && ok:
		return ErrConflict
	case prev.IsValid() && (!ok || cur != prev):
		return ErrConflict
	}
	return nil
}

func sortedNames(roots map[string]model.FileIndex) []string {
	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
