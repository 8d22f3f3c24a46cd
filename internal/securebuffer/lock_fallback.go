//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package securebuffer

func newLockingStrategy(bool) Strategy { return HeapStrategy{} }

// CheckMemoryLockSupport always reports false on platforms without mlock.
func CheckMemoryLockSupport() bool { return false }
