// Package main provides the zcat command-line tool. zcat decodes Zeek TSV
// logs, compressed or not, and writes them plain to stdout. Reading the logs
// through the decoder instead of a decompressor alone makes zcat a quick
// check that a log is well formed.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
	"github.com/mimecast/zeekagent/internal/io/dlog"
	"github.com/mimecast/zeekagent/internal/io/line"
	"github.com/mimecast/zeekagent/internal/io/pool"
	"github.com/mimecast/zeekagent/internal/io/signal"
	"github.com/mimecast/zeekagent/internal/version"
	"github.com/mimecast/zeekagent/internal/zeek"
)

var (
	noHeader   bool
	noComments bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "zcat [FILE...]",
	Short: "Print Zeek logs decoded",
	Long: `zcat prints Zeek TSV logs to stdout. gzip, zstd and snappy compressed
logs are decompressed. Without FILE, or when FILE is -, stdin is read.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dlog.Start(dlog.Config{Level: logLevel}); err != nil {
			return err
		}
		if len(args) == 0 {
			args = []string{"-"}
		}

		ctx, cancel := signal.InterruptContext(cmd.Context())
		defer cancel()

		out := bufio.NewWriterSize(os.Stdout, constants.WriteBufferSize)
		var failed int
		for _, path := range args {
			if err := cat(ctx, out, path); err != nil {
				dlog.Common.Error(path, "Cannot read log", err)
				failed++
			}
		}
		if err := out.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return errors.New("%d of %d logs could not be read", failed, len(args))
		}
		return nil
	},
}

func open(path string) (*zeek.Reader, error) {
	if path != "-" {
		return zeek.Open(path)
	}
	br := bufio.NewReaderSize(os.Stdin, constants.ReadBufferSize)
	rc, err := compress.NewReader(br, compress.Detect("", br))
	if err != nil {
		return nil, err
	}
	return zeek.NewReadCloser("stdin", rc)
}

func cat(ctx context.Context, out *bufio.Writer, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if !noHeader {
		if _, err := r.Header().WriteTo(out); err != nil {
			return err
		}
	}

	p := newPrinter(out, r.Codec())
	defer p.Close()
	return line.Drain(ctx, r, p)
}

// printer writes records in the encoding of the log they were read from.
type printer struct {
	out   *bufio.Writer
	codec *zeek.Codec
	buf   *bytes.Buffer
}

func newPrinter(out *bufio.Writer, codec *zeek.Codec) *printer {
	return &printer{
		out:   out,
		codec: codec,
		buf:   pool.BytesBuffer.Get().(*bytes.Buffer),
	}
}

func (p *printer) ProcessRecord(rec zeek.Record, lineNum uint64, sourceID string) error {
	if _, ok := rec.(*zeek.Comment); ok && noComments {
		return nil
	}
	p.buf.Reset()
	if err := p.codec.Encode(p.buf, rec); err != nil {
		return errors.Wrapf(err, "line %d", lineNum)
	}
	_, err := p.out.Write(p.buf.Bytes())
	return err
}

func (p *printer) Flush() error {
	return p.out.Flush()
}

func (p *printer) Close() error {
	if p.buf != nil {
		pool.RecycleBytesBuffer(p.buf)
		p.buf = nil
	}
	return nil
}

func init() {
	rootCmd.Flags().BoolVar(&noHeader, "no-header", false, "Omit the header block")
	rootCmd.Flags().BoolVar(&noComments, "no-comments", false, "Omit comment lines after the header")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
