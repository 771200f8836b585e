// Package conf loads tapedeck settings from defaults, an optional YAML config
// file and TAPEDECK_* environment variables.
package conf

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
)

// TapeSettings describes the backing file.
type TapeSettings struct {
	Path       string // path to the float32 WAV tape
	SampleRate int    // sample rate used when creating a tape
	Channels   int    // channel count used when creating a tape
	Create     bool   // create the tape when it does not exist
	Frames     int64  // length of a created tape in frames
}

// BufferSettings is the ring geometry. It is fixed for a session.
type BufferSettings struct {
	Capacity int // total frame slots in the ring
	Headroom int // frames kept free between the refill regions
	MinRead  int // low-water mark below which a side is refilled
}

// TelemetrySettings configures Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string // host:port for the /metrics listener
}

// Settings contains all configuration options for tapedeck.
type Settings struct {
	Debug bool // true to enable debug logging

	// Runtime values, not stored in config file
	Version string `yaml:"-" mapstructure:"-"`

	Tape      TapeSettings
	Buffer    BufferSettings
	Logging   logger.LoggingConfig
	Telemetry TelemetrySettings
	Metrics   MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file and environment variables into a
// validated Settings. configFile may be empty to search the default paths;
// a missing file is fine in that case.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate").
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Bad environment values are reported but do not stop startup;
		// validation catches anything that ends up out of range.
		logger.Global().Module("conf").Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range paths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("config_file", configFile).
			Build()
	}
	return nil
}
