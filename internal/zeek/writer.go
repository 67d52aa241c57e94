package zeek

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
	"github.com/mimecast/zeekagent/internal/io/pool"
)

// Writer emits a header followed by records. Records are written in call
// order.
type Writer struct {
	bw            *bufio.Writer
	closers       []io.Closer
	separator     string
	setSeparator  string
	headerWritten bool
}

// NewWriter returns a writer on w. w is never closed by the Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, constants.WriteBufferSize)}
}

// NewCompressedWriter returns a writer owning wc, compressing with kind.
// Close flushes the compressor, then closes wc.
func NewCompressedWriter(wc io.WriteCloser, kind compress.Kind) (*Writer, error) {
	cw, err := compress.NewWriter(wc, kind)
	if err != nil {
		return nil, err
	}
	w := NewWriter(cw)
	w.closers = []io.Closer{cw, wc}
	return w, nil
}

// Create creates or truncates the file at path and returns a writer owning it.
func Create(path string, kind compress.Kind) (*Writer, error) {
	fd, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewCompressedWriter(fd, kind)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return w, nil
}

// WriteHeader writes h. It must be called exactly once, before any Write.
func (w *Writer) WriteHeader(h *Header) error {
	if w.headerWritten {
		return errors.ErrHeaderWritten
	}
	if _, err := h.WriteTo(w.bw); err != nil {
		return errors.Mark(errors.ErrWriteFailed, err)
	}
	w.separator = h.Separator()
	w.setSeparator, _ = h.ContainerSeparator()
	w.headerWritten = true
	return nil
}

// Write encodes rec using the separators of the written header.
func (w *Writer) Write(rec Record) error {
	if !w.headerWritten {
		return errors.ErrHeaderNotWritten
	}

	buf := pool.BytesBuffer.Get().(*bytes.Buffer)
	defer pool.RecycleBytesBuffer(buf)

	if err := encode(buf, rec, w.separator, w.setSeparator); err != nil {
		return err
	}
	if _, err := w.bw.Write(buf.Bytes()); err != nil {
		return errors.Mark(errors.ErrWriteFailed, err)
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return errors.Mark(errors.ErrWriteFailed, err)
	}
	return nil
}

// Close flushes and releases everything the writer owns. The first error
// wins, but every closer is called.
func (w *Writer) Close() error {
	err := w.Flush()
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Mark(errors.ErrWriteFailed, cerr)
		}
	}
	w.closers = nil
	return err
}
