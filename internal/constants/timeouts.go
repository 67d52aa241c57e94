package constants

import "time"

// Timeout constants used throughout the application
const (
	// MetricsShutdownTimeout bounds the graceful shutdown of the metrics server
	MetricsShutdownTimeout = 5 * time.Second

	// MetricsReadHeaderTimeout bounds reading request headers on the metrics server
	MetricsReadHeaderTimeout = 10 * time.Second

	// WatchSettleDelay is how long a watched file must stay unmodified before
	// it is converted
	WatchSettleDelay = 500 * time.Millisecond
)
