// Package observability serves tapedeck's Prometheus metrics.
package observability

import "github.com/tphakala/tapedeck/internal/logger"

// Package-level cached logger instance for efficiency.
// All logging in this package should use this variable.
var log = logger.Global().Module("metrics")
