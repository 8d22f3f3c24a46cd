//go:build darwin || freebsd || netbsd || openbsd

package securebuffer

// No portable MADV_DONTDUMP equivalent; the mapping is still locked.
func excludeFromCoreDump([]byte) error { return nil }
