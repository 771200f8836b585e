// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Label values shared with the tape package's Recorder calls.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"

	SeekCached    = "cached"
	SeekDiscarded = "discarded"

	OpRead  = "read"
	OpWrite = "write"
	OpSync  = "sync"
)

const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)
