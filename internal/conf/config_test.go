package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/tapedeck/internal/errors"
)

// resetViper isolates tests from each other; viper state is global.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tape.wav", settings.Tape.Path)
	assert.Equal(t, DefaultSampleRate, settings.Tape.SampleRate)
	assert.Equal(t, DefaultChannels, settings.Tape.Channels)
	assert.Equal(t, int64(DefaultSampleRate*DefaultSeconds), settings.Tape.Frames)
	assert.Equal(t, DefaultCapacity, settings.Buffer.Capacity)
	assert.Equal(t, DefaultHeadroom, settings.Buffer.Headroom)
	assert.Equal(t, DefaultMinRead, settings.Buffer.MinRead)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.False(t, settings.Metrics.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadConfigFile(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
debug: true
tape:
  path: /data/session.wav
  channels: 8
  create: true
  frames: 96000
buffer:
  capacity: 32768
  minread: 2048
logging:
  module_levels:
    tape: trace
metrics:
  enabled: true
  listen: ":9100"
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, "debug", settings.Logging.DefaultLevel, "debug raises the default level")
	assert.Equal(t, "/data/session.wav", settings.Tape.Path)
	assert.Equal(t, 8, settings.Tape.Channels)
	assert.True(t, settings.Tape.Create)
	assert.Equal(t, int64(96000), settings.Tape.Frames)
	assert.Equal(t, 32768, settings.Buffer.Capacity)
	assert.Equal(t, DefaultHeadroom, settings.Buffer.Headroom)
	assert.Equal(t, 2048, settings.Buffer.MinRead)
	assert.Equal(t, "trace", settings.Logging.ModuleLevels["tape"])
	assert.Equal(t, ":9100", settings.Metrics.Listen)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, "tape:\n  channels: 2\n")
	t.Setenv("TAPEDECK_TAPE_CHANNELS", "6")
	t.Setenv("TAPEDECK_BUFFER_CAPACITY", "20000")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, settings.Tape.Channels)
	assert.Equal(t, 20000, settings.Buffer.Capacity)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, "buffer:\n  capacity: 1000\n  minread: 600\n")
	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func() *Settings {
		return &Settings{
			Tape:   TapeSettings{Path: "t.wav", SampleRate: 48000, Channels: 4, Frames: 10},
			Buffer: BufferSettings{Capacity: DefaultCapacity, Headroom: DefaultHeadroom, MinRead: DefaultMinRead},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"valid", func(*Settings) {}, false},
		{"empty path", func(s *Settings) { s.Tape.Path = "" }, true},
		{"zero sample rate", func(s *Settings) { s.Tape.SampleRate = 0 }, true},
		{"too many channels", func(s *Settings) { s.Tape.Channels = MaxChannels + 1 }, true},
		{"no channels", func(s *Settings) { s.Tape.Channels = 0 }, true},
		{"create without frames", func(s *Settings) { s.Tape.Create = true; s.Tape.Frames = 0 }, true},
		{"negative headroom", func(s *Settings) { s.Buffer.Headroom = -1 }, true},
		{"capacity too small", func(s *Settings) { s.Buffer.Capacity = 2 * (DefaultHeadroom + DefaultMinRead) }, true},
		{"smallest usable capacity", func(s *Settings) { s.Buffer.Capacity = 2*(DefaultHeadroom+DefaultMinRead) + 2 }, false},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, true},
		{"metrics without listen", func(s *Settings) { s.Metrics.Enabled = true }, true},
		{"bad timezone", func(s *Settings) { s.Logging.Timezone = "Mars/Olympus" }, true},
		{"utc timezone", func(s *Settings) { s.Logging.Timezone = "UTC" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvHelpers(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("maybe"))
	assert.NoError(t, validateEnvPositiveInt("1"))
	assert.Error(t, validateEnvPositiveInt("0"))
	assert.NoError(t, validateEnvNonNegativeInt("0"))
	assert.Error(t, validateEnvNonNegativeInt("-1"))
	assert.NoError(t, validateEnvChannels("32"))
	assert.Error(t, validateEnvChannels("33"))
}
