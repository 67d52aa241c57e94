package constants

// Buffer size constants in bytes
const (
	// ReadBufferSize is the size of the buffered reader in front of a log file (64KB)
	ReadBufferSize = 64 * 1024

	// WriteBufferSize is the size of the buffered writer in front of an output file (64KB)
	WriteBufferSize = 64 * 1024

	// LineBufferInitialCapacity is the initial capacity for pooled line buffers (4KB)
	LineBufferInitialCapacity = 4096
)
