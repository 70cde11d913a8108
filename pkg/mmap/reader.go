// Package mmap provides memory-mapped file I/O for zero-copy reading of
// large inputs. The mapped bytes back the parse tape directly, so a Reader
// must stay open until every tape built over it has been consumed.
package mmap

import (
	"os"
	"sync"

	"github.com/ajitpratap0/pulsar/pkg/errors"
)

// Reader is a read-only memory mapping of one file.
type Reader struct {
	file     *os.File
	data     []byte
	fileSize int64
	pageSize int

	bytesRead int64
	pagesRead int64

	mu sync.RWMutex
}

// NewReader maps filename read-only and advises the kernel of sequential
// access.
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file")
	}

	fileSize := stat.Size()
	if fileSize == 0 {
		file.Close()
		return nil, errors.New(errors.ErrorTypeFile, "file is empty")
	}

	data, err := mmap(int(file.Fd()), 0, int(fileSize), ProtRead, MapShared)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap file")
	}

	// non-fatal: the mapping works without the advice
	_ = madvise(data, MadvSequential)

	return &Reader{
		file:     file,
		data:     data,
		fileSize: fileSize,
		pageSize: os.Getpagesize(),
	}, nil
}

// ReadAll returns the entire mapped byte range.
func (r *Reader) ReadAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefetchRange(0, r.fileSize)
	r.bytesRead = r.fileSize
	r.pagesRead = (r.fileSize + int64(r.pageSize) - 1) / int64(r.pageSize)

	return r.data
}

// ReadRange returns a window of the mapping. The slice aliases the mapping
// and is only valid until Close.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if offset < 0 || offset >= r.fileSize {
		return nil, errors.Newf(errors.ErrorTypeRange,
			"offset %d out of range [0, %d)", offset, r.fileSize)
	}

	end := offset + length
	if end > r.fileSize {
		end = r.fileSize
	}

	r.prefetchRange(offset, end)
	r.bytesRead += end - offset
	r.pagesRead += ((end - offset) + int64(r.pageSize) - 1) / int64(r.pageSize)

	return r.data[offset:end], nil
}

// Size returns the mapped file size.
func (r *Reader) Size() int64 { return r.fileSize }

// prefetchRange advises the kernel to fault in a page-aligned window.
func (r *Reader) prefetchRange(start, end int64) {
	startPage := (start / int64(r.pageSize)) * int64(r.pageSize)
	endPage := ((end + int64(r.pageSize) - 1) / int64(r.pageSize)) * int64(r.pageSize)
	if endPage > r.fileSize {
		endPage = r.fileSize
	}
	if endPage-startPage <= 0 {
		return
	}
	_ = madvise(r.data[startPage:endPage], MadvWillneed)
}

// Close unmaps and closes the file. Tapes built over the mapping must not
// be read afterwards.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.data != nil {
		err = munmap(r.data)
		r.data = nil
	}
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}
	return err
}

// Stats returns cumulative read counters.
func (r *Reader) Stats() (bytesRead, pagesRead int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead, r.pagesRead
}
