package securebuffer

import (
	"errors"
	"fmt"
)

var (
	ErrLockUnavailable = errors.New("securebuffer: memory locking is unavailable")
	ErrOutOfBounds     = errors.New("securebuffer: access out of bounds")
	ErrInvalidSize     = errors.New("securebuffer: invalid size")
)

// Strategy decides where guarded memory comes from and how it is returned.
// Release is only ever called on memory that has already been zeroed.
type Strategy interface {
	Name() string
	// LocksMemory reports whether regions are meant to be pinned in RAM.
	LocksMemory() bool
	Allocate(size int) (mem []byte, locked bool, err error)
	Release(mem []byte, locked bool) error
}

// HeapStrategy keeps secrets in ordinary Go memory. The collector may move
// or copy it and the kernel may page it out, so only zeroization holds.
type HeapStrategy struct{}

func (HeapStrategy) Name() string { return "heap" }

func (HeapStrategy) LocksMemory() bool { return false }

func (HeapStrategy) Allocate(size int) ([]byte, bool, error) {
	if size <= 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return make([]byte, size), false, nil
}

func (HeapStrategy) Release([]byte, bool) error { return nil }

// Select returns the locking strategy when the platform supports mlock and
// the heap strategy otherwise. With requireLock the degraded mode is refused.
func Select(requireLock bool) (Strategy, error) {
	if CheckMemoryLockSupport() {
		return newLockingStrategy(requireLock), nil
	}
	if requireLock {
		return nil, ErrLockUnavailable
	}
	return HeapStrategy{}, nil
}
