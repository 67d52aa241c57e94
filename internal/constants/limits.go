package constants

// Numeric limits and configuration values
const (
	// DefaultWorkers is the default number of files converted concurrently
	DefaultWorkers = 1

	// ProgressInterval is the number of records between two progress dots
	ProgressInterval = 10000

	// CancelCheckInterval is the number of records between two context checks
	CancelCheckInterval = 1024

	// OutputFileMode is the permission of converted files
	OutputFileMode = 0644

	// OutputDirMode is the permission of created output directories
	OutputDirMode = 0755
)
