//go:build darwin
// +build darwin

package mmap

import (
	"syscall"
	"unsafe"
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
// The syscall package does not wrap madvise on darwin, so the raw syscall
// is issued directly. Failures are advisory and callers ignore them.
func madvise(b []byte, advice int) error {
	if len(b) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE,
		uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(advice))
	if errno != 0 {
		return errno
	}
	return nil
}

const (
	// ProtRead is the only protection the reader requests; the mapped
	// input buffer is never written.
	ProtRead = syscall.PROT_READ //nolint:stylecheck

	MapShared = syscall.MAP_SHARED //nolint:stylecheck

	// MADV_* values from <sys/mman.h>; the darwin syscall package does
	// not export them. MadvSequential is set once over the whole mapping;
	// MadvWillneed is issued per page range ahead of chunk parsing.
	MadvSequential = 2 //nolint:stylecheck
	MadvWillneed   = 3 //nolint:stylecheck
)
