//go:build linux
// +build linux

package mmap

import (
	"syscall"
)

// mmap maps length bytes of fd starting at offset. The reader only ever
// asks for read-only shared mappings.
func mmap(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
	return syscall.Mmap(fd, offset, length, prot, flags)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// madvise passes access-pattern hints for a mapped region to the kernel.
// Failures are advisory and callers ignore them.
func madvise(b []byte, advice int) error {
	return syscall.Madvise(b, advice)
}

const (
	// ProtRead is the only protection the reader requests; the mapped
	// input buffer is never written.
	ProtRead = syscall.PROT_READ //nolint:stylecheck

	MapShared = syscall.MAP_SHARED //nolint:stylecheck

	// MadvSequential is set once over the whole mapping; MadvWillneed is
	// issued per page range ahead of chunk parsing.
	MadvSequential = syscall.MADV_SEQUENTIAL //nolint:stylecheck
	MadvWillneed   = syscall.MADV_WILLNEED   //nolint:stylecheck
)
