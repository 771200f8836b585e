package tape

import (
	"fmt"

	"github.com/tphakala/tapedeck/internal/errors"
)

// Default ring geometry. Capacity is roughly 1.4 s of audio at 48 kHz.
const (
	DefaultCapacity = 65536
	DefaultHeadroom = 1
	DefaultMinRead  = 4096
)

// MaxPosition is the furthest frame the transport can be moved to. Seeks
// beyond it saturate, leaving room for window arithmetic and byte offsets.
const MaxPosition int64 = 1 << 48

// Config holds the fixed ring geometry of a Streamer. It cannot change after Open.
type Config struct {
	// Capacity is the total number of frame slots in the ring.
	Capacity int
	// Headroom is kept free between the forward and backward refill regions.
	Headroom int
	// MinRead is the low-water mark: a side is refilled only once it has
	// fallen this many frames below the desired window.
	MinRead int
}

// DefaultConfig returns the default ring geometry.
func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		Headroom: DefaultHeadroom,
		MinRead:  DefaultMinRead,
	}
}

// DesiredWindow is the fill target for each side of the play position.
func (c Config) DesiredWindow() int {
	return c.Capacity/2 - c.Headroom
}

// Validate checks that the geometry leaves room for at least one refill per side.
func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0:
		return errors.New(fmt.Errorf("invalid ring capacity %d: must be positive", c.Capacity)).
			Category(errors.CategoryValidation).
			Context("capacity", c.Capacity).
			Build()
	case c.Headroom < 0 || c.MinRead < 0:
		return errors.New(fmt.Errorf("invalid ring geometry: headroom %d, min read %d must not be negative", c.Headroom, c.MinRead)).
			Category(errors.CategoryValidation).
			Build()
	case c.DesiredWindow()-c.MinRead <= 0:
		return errors.New(fmt.Errorf("invalid ring geometry: capacity %d too small for headroom %d and min read %d",
			c.Capacity, c.Headroom, c.MinRead)).
			Category(errors.CategoryValidation).
			Context("capacity", c.Capacity).
			Context("headroom", c.Headroom).
			Context("min_read", c.MinRead).
			Build()
	}
	return nil
}
