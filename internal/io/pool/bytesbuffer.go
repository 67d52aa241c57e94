package pool

import (
	"bytes"
	"sync"

	"github.com/mimecast/zeekagent/internal/constants"
)

// BytesBuffer is there to optimize memory allocations. Every encoded record
// would otherwise allocate a fresh line buffer.
var BytesBuffer = sync.Pool{
	New: func() interface{} {
		b := bytes.Buffer{}
		// Most Zeek rows are a few hundred bytes, some (http, ssl) get larger
		b.Grow(constants.LineBufferInitialCapacity)
		return &b
	},
}

// RecycleBytesBuffer recycles the buffer again.
func RecycleBytesBuffer(b *bytes.Buffer) {
	b.Reset()
	BytesBuffer.Put(b)
}
