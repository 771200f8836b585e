package create

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/audiofile"
	"github.com/tphakala/tapedeck/internal/conf"
)

// Command creates a new command that writes a silent tape.
func Command(ctx *app.Context) *cobra.Command {
	var seconds float64

	cmd := &cobra.Command{
		Use:   "create [tape.wav]",
		Short: "Create a silent float32 tape",
		Long:  "Create a 32-bit float WAV tape filled with silence. An existing file is overwritten.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			settings.Tape.Path = args[0]

			frames := settings.Tape.Frames
			if seconds > 0 {
				frames = int64(seconds * float64(settings.Tape.SampleRate))
			}

			f, err := audiofile.Create(settings.Tape.Path, settings.Tape.SampleRate, settings.Tape.Channels, frames)
			if err != nil {
				return err
			}
			info := f.Info()
			if err := f.Close(); err != nil {
				return err
			}

			duration := time.Duration(float64(info.Frames) / float64(info.SampleRate) * float64(time.Second))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s: %d channels, %d Hz, %d frames (%s)\n",
				settings.Tape.Path, info.Channels, info.SampleRate, info.Frames, duration.Round(time.Millisecond))
			return err
		},
	}

	if err := setupFlags(cmd, &seconds); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the create command.
func setupFlags(cmd *cobra.Command, seconds *float64) error {
	cmd.Flags().Int("channels", conf.DefaultChannels, "Number of tracks")
	cmd.Flags().Int("samplerate", conf.DefaultSampleRate, "Sample rate in Hz")
	cmd.Flags().Float64Var(seconds, "seconds", 0, "Tape length in seconds (default: tape.frames from config)")

	if err := viper.BindPFlag("tape.channels", cmd.Flags().Lookup("channels")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("tape.samplerate", cmd.Flags().Lookup("samplerate")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
