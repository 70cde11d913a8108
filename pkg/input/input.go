// Package input materializes parse inputs as flat byte buffers. Plain files
// above a size threshold are memory mapped; smaller and compressed files
// are read into heap memory. Compression is detected by extension.
package input

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/mmap"
)

// mmapThreshold is the plain-file size above which the loader memory maps
// instead of copying into the heap.
const mmapThreshold = 4 << 20

// Source is a loaded input buffer. Close releases the mapping when the
// buffer is memory mapped; it is a no-op for heap buffers. The Data slice
// must not be used after Close.
type Source struct {
	Data   []byte
	Path   string
	Mapped bool

	reader *mmap.Reader
}

// Close releases any resources behind the buffer.
func (s *Source) Close() error {
	if s.reader != nil {
		r := s.reader
		s.reader = nil
		s.Data = nil
		return r.Close()
	}
	return nil
}

// Load reads path into a Source. Files ending in .gz, .zst or .lz4 are
// decompressed in full; other files are mapped or read directly.
func Load(path string) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return loadCompressed(path, func(r io.Reader) (io.Reader, func() error, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr.Close, nil
		})
	case ".zst":
		return loadCompressed(path, func(r io.Reader) (io.Reader, func() error, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, func() error { zr.Close(); return nil }, nil
		})
	case ".lz4":
		return loadCompressed(path, func(r io.Reader) (io.Reader, func() error, error) {
			return lz4.NewReader(r), func() error { return nil }, nil
		})
	}
	return loadPlain(path)
}

func loadPlain(path string) (*Source, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat input")
	}

	if stat.Size() >= mmapThreshold {
		r, err := mmap.NewReader(path)
		if err != nil {
			return nil, err
		}
		return &Source{Data: r.ReadAll(), Path: path, Mapped: true, reader: r}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read input")
	}
	return &Source{Data: data, Path: path}, nil
}

func loadCompressed(path string, open func(io.Reader) (io.Reader, func() error, error)) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input")
	}
	defer f.Close()

	zr, closeFn, err := open(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open decompressor")
	}
	defer closeFn()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to decompress input")
	}
	return &Source{Data: data, Path: path}, nil
}
