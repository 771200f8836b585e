package tape

import "github.com/tphakala/tapedeck/internal/errors"

// Sentinel errors for the tape package.
var (
	// ErrClosed is returned when waiting on a streamer whose worker has stopped.
	ErrClosed = errors.Newf("tape streamer closed").
		Component("tape").
		Category(errors.CategoryState).
		Build()

	// ErrNilSource is returned by Open when no backing source is supplied.
	ErrNilSource = errors.Newf("tape source is nil").
		Component("tape").
		Category(errors.CategoryValidation).
		Build()
)
