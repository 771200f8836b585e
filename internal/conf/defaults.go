// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Default tape and ring geometry.
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 4
	DefaultSeconds    = 60

	DefaultCapacity = 65536
	DefaultHeadroom = 1
	DefaultMinRead  = 4096

	DefaultMetricsListen = "localhost:9464"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("tape.path", "tape.wav")
	viper.SetDefault("tape.samplerate", DefaultSampleRate)
	viper.SetDefault("tape.channels", DefaultChannels)
	viper.SetDefault("tape.create", false)
	viper.SetDefault("tape.frames", int64(DefaultSampleRate*DefaultSeconds))

	viper.SetDefault("buffer.capacity", DefaultCapacity)
	viper.SetDefault("buffer.headroom", DefaultHeadroom)
	viper.SetDefault("buffer.minread", DefaultMinRead)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/tapedeck.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", DefaultMetricsListen)
}
