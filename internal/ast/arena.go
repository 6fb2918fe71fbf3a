package ast

import "sync"

// Arena is an append-only store shared by every tree snapshot derived from
// one parse. Stored values are never modified after Allocate, so snapshots
// may read concurrently while a fix appends new entries.
type Arena[T any] struct {
	mu   sync.RWMutex
	data []T
}

// NewArena creates and returns an *Arena[T] whose internal slice is allocated with a capacity of capHint.
// capHint is a hint for the initial capacity of the arena's underlying storage; zero is allowed.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]T, 0, capHint),
	}
}

// Возвращает индекс нового элемента (1-based).
func (a *Arena[T]) Allocate(value T) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = append(a.data, value)
	return uint32(len(a.data))
}

// Get returns a copy of the element at index; index 0 is the "no element" id.
func (a *Arena[T]) Get(index uint32) (T, bool) {
	var zero T
	if index == 0 {
		return zero, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(index) > len(a.data) {
		return zero, false
	}
	return a.data[index-1], true
}

func (a *Arena[T]) Len() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return uint32(len(a.data))
}
