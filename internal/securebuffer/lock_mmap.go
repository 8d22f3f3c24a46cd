//go:build linux || darwin || freebsd || netbsd || openbsd

package securebuffer

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockingStrategy allocates anonymous mappings outside the Go heap and locks
// them into RAM. When a single mlock fails (usually RLIMIT_MEMLOCK) the
// mapping is kept unlocked unless RequireLock is set.
type LockingStrategy struct {
	RequireLock bool

	// mlock is replaced in tests to simulate RLIMIT_MEMLOCK.
	mlock func([]byte) error
}

func newLockingStrategy(requireLock bool) Strategy {
	return LockingStrategy{RequireLock: requireLock}
}

func (LockingStrategy) Name() string { return "mlock" }

func (LockingStrategy) LocksMemory() bool { return true }

func (s LockingStrategy) Allocate(size int) ([]byte, bool, error) {
	if size <= 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, false, fmt.Errorf("securebuffer: mmap failed: %w", err)
	}

	lock := s.mlock
	if lock == nil {
		lock = unix.Mlock
	}
	locked := true
	if err := lock(data); err != nil {
		if s.RequireLock {
			_ = unix.Munmap(data)
			return nil, false, fmt.Errorf("%w: mlock: %v", ErrLockUnavailable, err)
		}
		locked = false
	}

	// Best effort: kernels without MADV_DONTDUMP still get swap protection.
	_ = excludeFromCoreDump(data)

	return data, locked, nil
}

func (LockingStrategy) Release(mem []byte, locked bool) error {
	var firstErr error
	if locked {
		if err := unix.Munlock(mem); err != nil {
			firstErr = fmt.Errorf("securebuffer: munlock failed: %w", err)
		}
	}
	if err := unix.Munmap(mem); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("securebuffer: munmap failed: %w", err)
	}
	return firstErr
}

// CheckMemoryLockSupport maps, locks, unlocks and unmaps a single page. It
// leaves no state behind.
func CheckMemoryLockSupport() bool {
	page, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return false
	}
	defer unix.Munmap(page)

	if err := unix.Mlock(page); err != nil {
		return false
	}
	_ = unix.Munlock(page)
	return true
}
