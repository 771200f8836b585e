package audiofile

import "github.com/tphakala/tapedeck/internal/logger"

// GetLogger returns the audiofile module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audiofile")
}
