package session

import "github.com/tphakala/tapedeck/internal/logger"

// GetLogger returns the session module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("session")
}
