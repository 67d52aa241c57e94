// Package compress handles the transparent (de)compression of Zeek log files.
// The compression of an input file is detected from its name suffix and, for
// unknown suffixes, from the magic bytes at the start of the stream.
package compress

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
)

// Kind is a supported compression format.
type Kind int

// Supported compression kinds.
const (
	None Kind = iota
	Gzip
	Zstd
	Snappy
)

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	default:
		return "none"
	}
}

// Suffix returns the file name suffix of the kind, including the dot.
func (k Kind) Suffix() string {
	switch k {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case Snappy:
		return ".sz"
	default:
		return ""
	}
}

// ParseKind parses a configuration name such as "gzip" or "none".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "none", "plain":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "snappy", "sz":
		return Snappy, nil
	}
	return None, errors.Wrapf(errors.ErrUnsupportedCompression, "%q", s)
}

// FromName returns the kind implied by the suffix of a file name.
func FromName(name string) Kind {
	for _, k := range []Kind{Gzip, Zstd, Snappy} {
		if strings.HasSuffix(name, k.Suffix()) {
			return k
		}
	}
	return None
}

// StripSuffix removes a recognized compression suffix from a file name.
func StripSuffix(name string) string {
	return strings.TrimSuffix(name, FromName(name).Suffix())
}

// Detect determines the compression of a stream named name. The suffix wins;
// without one the first bytes are inspected without being consumed.
func Detect(name string, br *bufio.Reader) Kind {
	if kind := FromName(name); kind != None {
		return kind
	}
	head, _ := br.Peek(len(snappyMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, snappyMagic):
		return Snappy
	}
	return None
}

// NewReader returns a decompressing reader of the given kind reading from r.
// Closing it does not close r.
func NewReader(r io.Reader, kind Kind) (io.ReadCloser, error) {
	switch kind {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "creating gzip reader")
		}
		return gz, nil
	case Zstd:
		return zstd.NewReader(r), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedCompression, "kind %d", kind)
}

// NewWriter returns a compressing writer of the given kind writing to w.
// Closing it flushes the compressor but does not close w.
func NewWriter(w io.Writer, kind Kind) (io.WriteCloser, error) {
	switch kind {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriterLevel(w, zstd.DefaultCompression), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedCompression, "kind %d", kind)
}

// Open opens the file at path for reading, decompressing on the fly. Closing
// the returned reader releases both the decompressor and the file handle.
func Open(path string) (io.ReadCloser, error) {
	fd, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.ErrFileNotFound, err)
		}
		return nil, err
	}
	br := bufio.NewReaderSize(fd, constants.ReadBufferSize)
	rc, err := NewReader(br, Detect(path, br))
	if err != nil {
		fd.Close()
		return nil, errors.Wrap(err, path)
	}
	return &fileReader{ReadCloser: rc, fd: fd}, nil
}

type fileReader struct {
	io.ReadCloser
	fd *os.File
}

func (f *fileReader) Close() error {
	err := f.ReadCloser.Close()
	if fdErr := f.fd.Close(); err == nil {
		err = fdErr
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
