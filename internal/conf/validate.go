// conf/validate.go

package conf

import (
	"fmt"
	"time"
)

// MaxChannels is the largest channel count a tape may have.
const MaxChannels = 32

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateTapeSettings(&settings.Tape); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateBufferSettings(&settings.Buffer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLoggingSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry enabled but no DSN configured")
	}
	if settings.Metrics.Enabled && settings.Metrics.Listen == "" {
		ve.Errors = append(ve.Errors, "metrics enabled but no listen address configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateTapeSettings(settings *TapeSettings) error {
	switch {
	case settings.Path == "":
		return fmt.Errorf("tape path must not be empty")
	case settings.SampleRate <= 0:
		return fmt.Errorf("tape sample rate must be positive, got %d", settings.SampleRate)
	case settings.Channels < 1 || settings.Channels > MaxChannels:
		return fmt.Errorf("tape channels must be between 1 and %d, got %d", MaxChannels, settings.Channels)
	case settings.Create && settings.Frames <= 0:
		return fmt.Errorf("tape frames must be positive when create is enabled, got %d", settings.Frames)
	}
	return nil
}

func validateBufferSettings(settings *BufferSettings) error {
	switch {
	case settings.Headroom < 0 || settings.MinRead < 0:
		return fmt.Errorf("buffer headroom (%d) and minread (%d) must not be negative",
			settings.Headroom, settings.MinRead)
	case settings.Capacity/2-settings.Headroom-settings.MinRead <= 0:
		return fmt.Errorf("buffer capacity %d too small: capacity/2 must exceed headroom+minread (%d)",
			settings.Capacity, settings.Headroom+settings.MinRead)
	}
	return nil
}

func validateLoggingSettings(settings *Settings) error {
	tz := settings.Logging.Timezone
	if tz == "" || tz == "Local" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid logging timezone %q: %w", tz, err)
	}
	return nil
}
