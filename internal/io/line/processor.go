// Package line drives the records of a Zeek log through a Processor.
package line

import (
	"context"
	"io"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/zeek"
)

// Processor handles the records of one log, one at a time.
type Processor interface {
	// ProcessRecord handles the record read at lineNum from sourceID.
	// Returns error if processing should stop.
	ProcessRecord(rec zeek.Record, lineNum uint64, sourceID string) error

	// Flush ensures any buffered data is written out. Called once all
	// records were processed.
	Flush() error

	// Close cleans up any resources used by the processor.
	Close() error
}

// Drain passes every remaining record of r to p and flushes p. It stops at
// the first error, or with ctx's error once ctx is done. p is not closed.
func Drain(ctx context.Context, r *zeek.Reader, p Processor) error {
	var count uint64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := p.ProcessRecord(rec, r.Line(), r.Name()); err != nil {
			return err
		}
		count++
		if count%constants.CancelCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return p.Flush()
}
