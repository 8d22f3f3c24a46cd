package securebuffer

import (
	"fmt"
	"runtime"
	"sync"
)

// Buffer is a fixed-size region of guarded memory. It must not be copied
// after creation and must be destroyed by its owner.
type Buffer struct {
	mu        sync.Mutex
	strategy  Strategy
	data      []byte
	locked    bool
	destroyed bool
}

// New allocates a zero-filled buffer of size bytes. A zero size yields a
// valid empty buffer that never touches the strategy.
func New(strategy Strategy, size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if strategy == nil {
		strategy = HeapStrategy{}
	}
	b := &Buffer{strategy: strategy}
	if size == 0 {
		return b, nil
	}
	data, locked, err := strategy.Allocate(size)
	if err != nil {
		return nil, err
	}
	b.data = data
	b.locked = locked
	return b, nil
}

// FromBytes copies source into a new buffer and zeroes source, so the
// caller's slice no longer holds the secret. Source is zeroed even when the
// allocation fails.
func FromBytes(strategy Strategy, source []byte) (*Buffer, error) {
	defer Zero(source)

	b, err := New(strategy, len(source))
	if err != nil {
		return nil, err
	}
	copy(b.data, source)
	return b, nil
}

// Bytes returns the guarded region itself. Do not retain the slice past
// Destroy.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mustBeLive()
	return b.data
}

// Read returns a view of n bytes starting at offset.
func (b *Buffer) Read(offset, n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mustBeLive()
	if offset < 0 || n < 0 || offset+n > len(b.data) {
		return nil, fmt.Errorf("%w: read [%d:%d] of %d", ErrOutOfBounds, offset, offset+n, len(b.data))
	}
	return b.data[offset : offset+n], nil
}

// Write copies p into the buffer at offset.
func (b *Buffer) Write(offset int, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mustBeLive()
	if offset < 0 || offset+len(p) > len(b.data) {
		return fmt.Errorf("%w: write [%d:%d] of %d", ErrOutOfBounds, offset, offset+len(p), len(b.data))
	}
	copy(b.data[offset:], p)
	return nil
}

// Degraded reports a region that its strategy meant to lock but could not,
// so the secret sits in pageable memory.
func (b *Buffer) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) > 0 && !b.locked && b.strategy.LocksMemory()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the region is pinned against paging.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Destroy zeroes the region and hands it back to the strategy. Release
// errors are returned but the contents are already gone by then.
func (b *Buffer) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	if b.data == nil {
		return nil
	}

	Zero(b.data)
	err := b.strategy.Release(b.data, b.locked)
	b.data = nil
	return err
}

func (b *Buffer) mustBeLive() {
	if b.destroyed {
		panic("securebuffer: access to destroyed buffer")
	}
}

// Zero overwrites b with zeros. KeepAlive keeps the store observable so it
// is not dropped as dead.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
