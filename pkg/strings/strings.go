// Package strings provides zero-copy string utilities and buffer views for Pulsar
package strings

import (
	"unsafe"

	"github.com/zeebo/xxh3"
)

// BytesToString converts byte slice to string without allocation
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts string to byte slice without allocation
// WARNING: The returned byte slice shares memory with the string.
// Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// View is a value-type slice of a shared input buffer: offset plus length.
// Equality and hashing are defined over the bytes it references, never over
// the offset itself, so two views of identical content compare equal even
// when they point at different buffer positions.
type View struct {
	Off int
	Len int
}

// Bytes returns the referenced bytes. The result aliases buf.
func (v View) Bytes(buf []byte) []byte {
	return buf[v.Off : v.Off+v.Len]
}

// String returns the referenced bytes as a zero-copy string. The result
// aliases buf and must not outlive it.
func (v View) String(buf []byte) string {
	return BytesToString(v.Bytes(buf))
}

// Clone materializes an owned copy of the referenced bytes. Views stored in
// longer-lived maps must be cloned because the buffer region may be reused.
func (v View) Clone(buf []byte) string {
	return string(v.Bytes(buf))
}

// Hash returns a 64-bit content hash of the referenced bytes.
func (v View) Hash(buf []byte) uint64 {
	return xxh3.Hash(v.Bytes(buf))
}

// EqualContent reports whether two views reference byte-identical content.
func (v View) EqualContent(buf []byte, other View, otherBuf []byte) bool {
	if v.Len != other.Len {
		return false
	}
	a := v.Bytes(buf)
	b := other.Bytes(otherBuf)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns an owned copy of s detached from any shared buffer.
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return BytesToString(b)
}
