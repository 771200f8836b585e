// env.go - Environment variable configuration and validation for tapedeck
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TAPEDECK"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "TAPEDECK_DEBUG", validateEnvBool},

		// Tape
		{"tape.path", "TAPEDECK_TAPE_PATH", nil},
		{"tape.samplerate", "TAPEDECK_TAPE_SAMPLERATE", validateEnvPositiveInt},
		{"tape.channels", "TAPEDECK_TAPE_CHANNELS", validateEnvChannels},
		{"tape.create", "TAPEDECK_TAPE_CREATE", validateEnvBool},
		{"tape.frames", "TAPEDECK_TAPE_FRAMES", validateEnvPositiveInt},

		// Ring geometry
		{"buffer.capacity", "TAPEDECK_BUFFER_CAPACITY", validateEnvPositiveInt},
		{"buffer.headroom", "TAPEDECK_BUFFER_HEADROOM", validateEnvNonNegativeInt},
		{"buffer.minread", "TAPEDECK_BUFFER_MINREAD", validateEnvNonNegativeInt},

		// Telemetry and metrics
		{"telemetry.enabled", "TAPEDECK_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "TAPEDECK_TELEMETRY_DSN", nil},
		{"metrics.enabled", "TAPEDECK_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "TAPEDECK_METRICS_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer, got '%s'", value)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer, got '%s'", value)
	}
	return nil
}

func validateEnvChannels(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > MaxChannels {
		return fmt.Errorf("must be between 1 and %d, got '%s'", MaxChannels, value)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return bindEnvVars()
}
