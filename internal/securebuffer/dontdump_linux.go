//go:build linux

package securebuffer

import "golang.org/x/sys/unix"

func excludeFromCoreDump(data []byte) error {
	return unix.Madvise(data, unix.MADV_DONTDUMP)
}
