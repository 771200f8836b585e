package tape

import "github.com/tphakala/tapedeck/internal/logger"

// GetLogger returns the tape module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("tape")
}
