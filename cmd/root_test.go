package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/buildinfo"
)

// run executes one tapedeck invocation with a fresh application context.
func run(t *testing.T, args ...string) string {
	t.Helper()
	viper.Reset()

	ctx := app.NewContext(buildinfo.NewContext("test", "", ""))
	root := RootCommand(ctx)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(t.Context())
	require.NoError(t, ctx.Shutdown())
	require.NoError(t, err, "tapedeck %v", args)
	return out.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Cleanup(viper.Reset)

	path := filepath.Join(dir, "tape.wav")

	out := run(t, "create", path, "--channels", "2", "--samplerate", "8000", "--seconds", "0.5")
	assert.Contains(t, out, "4000 frames")

	out = run(t, "info", path)
	assert.Contains(t, out, "8000 Hz")
	assert.Regexp(t, `Frames:\s+4000`, out)

	out = run(t, "overdub", path, "--capacity", "2048", "--minread", "256",
		"--at", "1000", "--frames", "2000", "--channel", "1", "--gain", "0.5")
	assert.Contains(t, out, "wrote 2000 frames")

	out = run(t, "scan", path, "--capacity", "2048", "--minread", "256", "--from", "1000", "--frames", "2000")
	assert.Contains(t, out, "2000 frames in")
	assert.Contains(t, out, "-Inf", "channel 0 is still silent")
	assert.Contains(t, out, "-6.02", "channel 1 peaks at half scale")
}

func TestVersionSkipsSetup(t *testing.T) {
	t.Cleanup(viper.Reset)
	out := run(t, "version", "--config", "/does/not/exist.yaml")
	assert.Contains(t, out, "tapedeck test")
}

func TestInvalidFlagsFailSetup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Cleanup(viper.Reset)
	viper.Reset()

	ctx := app.NewContext(buildinfo.NewContext("test", "", ""))
	root := RootCommand(ctx)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"info", "x.wav", "--capacity", "64"})
	require.Error(t, root.ExecuteContext(t.Context()))
	require.NoError(t, ctx.Shutdown())
}
