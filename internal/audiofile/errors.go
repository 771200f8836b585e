package audiofile

import "github.com/tphakala/tapedeck/internal/errors"

var (
	// ErrUnsupportedFormat is returned when a file is not 32-bit IEEE float WAV.
	ErrUnsupportedFormat = errors.Newf("unsupported tape format: need 32-bit float WAV").
		Component("audiofile").
		Category(errors.CategoryFileParsing).
		Build()

	// ErrNotExtendable is returned when a write runs past the data chunk of a
	// file that has other chunks after it.
	ErrNotExtendable = errors.Newf("data chunk cannot grow: trailing chunks follow it").
		Component("audiofile").
		Category(errors.CategoryFileIO).
		Build()

	// ErrFileClosed is returned by operations on a closed File.
	ErrFileClosed = errors.Newf("tape file closed").
		Component("audiofile").
		Category(errors.CategoryState).
		Build()
)
