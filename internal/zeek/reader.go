// Package zeek reads and writes Zeek's self-describing tab separated log
// format. A Reader parses the header once and then decodes one record per
// call to Next; a Writer emits a header followed by records, byte for byte
// as they were read unless fields were appended in between.
package zeek

import (
	"bufio"
	"io"
	"strings"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
	"github.com/mimecast/zeekagent/internal/io/dlog"
)

type readerState int

const (
	headerRead readerState = iota
	streaming
	exhausted
)

// Stats counts what a Reader has decoded so far.
type Stats struct {
	Rows      uint64
	Comments  uint64
	Truncated uint64
}

// Reader is a forward only source of records.
type Reader struct {
	name   string
	br     *bufio.Reader
	closer io.Closer
	header *Header
	codec  *Codec
	state  readerState
	line   uint64
	stats  Stats
}

// NewReader parses the header from r and returns a reader positioned at the
// first record. r is read through a buffer and never closed by the Reader.
func NewReader(r io.Reader) (*Reader, error) {
	return newReader("", r, nil)
}

// NewReadCloser is NewReader for a stream the Reader takes ownership of. rc
// is closed by Close, or right away if the header cannot be parsed. name
// identifies the stream in log messages.
func NewReadCloser(name string, rc io.ReadCloser) (*Reader, error) {
	r, err := newReader(name, rc, rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return r, nil
}

// Open opens the log at path, decompressing it if needed. The file handle is
// released by Close, or right away if the header cannot be parsed.
func Open(path string) (*Reader, error) {
	rc, err := compress.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := newReader(path, rc, rc)
	if err != nil {
		rc.Close()
		return nil, errors.Wrap(err, path)
	}
	return r, nil
}

func newReader(name string, r io.Reader, closer io.Closer) (*Reader, error) {
	br := bufio.NewReaderSize(r, constants.ReadBufferSize)
	header, err := ParseHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{
		name:   name,
		br:     br,
		closer: closer,
		header: header,
		codec:  NewCodec(header),
		line:   uint64(len(header.keys) + 1),
	}, nil
}

// Name returns the file path the reader was opened with, if any.
func (r *Reader) Name() string {
	return r.name
}

// Header returns a copy of the parsed header. Callers may modify the copy,
// e.g. to append fields before handing it to a Writer.
func (r *Reader) Header() *Header {
	return r.header.Clone()
}

// Path returns the log type declared in the header.
func (r *Reader) Path() string {
	return r.header.Path()
}

// Codec returns the codec bound to the parsed header.
func (r *Reader) Codec() *Codec {
	return r.codec
}

// Line returns the number of the line last read, counting header lines.
func (r *Reader) Line() uint64 {
	return r.line
}

// Stats returns the decode counters.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Next returns the next record. At the end of the stream it returns io.EOF;
// any other error means the stream could not be read or decoded.
func (r *Reader) Next() (Record, error) {
	if r.state == exhausted {
		return nil, io.EOF
	}

	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Mark(errors.ErrReadFailed, err)
	}
	if len(line) == 0 {
		r.state = exhausted
		return nil, io.EOF
	}
	r.state = streaming
	r.line++

	rec, err := r.codec.DecodeLine(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return nil, errors.Wrapf(err, "line %d", r.line)
	}

	switch rec := rec.(type) {
	case *Comment:
		r.stats.Comments++
	case *Row:
		r.stats.Rows++
		if rec.Truncated() {
			r.stats.Truncated++
			if r.stats.Truncated == 1 {
				dlog.Common.Warn(r.name, "Truncated row", errors.Wrapf(errors.ErrFieldCountMismatch,
					"line %d has %d of %d fields", r.line, rec.Len(), r.codec.FieldCount()))
			}
		}
	}
	return rec, nil
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	r.state = exhausted
	if r.closer == nil {
		return nil
	}
	closer := r.closer
	r.closer = nil
	return closer.Close()
}
