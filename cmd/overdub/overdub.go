package overdub

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
	"github.com/tphakala/tapedeck/internal/session"
	"github.com/tphakala/tapedeck/internal/tape"
)

// Options controls an overdub.
type Options struct {
	At        int64   // first frame to overwrite
	Channel   int     // zero-based track
	Frames    int64   // tone length in frames
	Frequency float64 // Hz
	Gain      float64 // linear amplitude, 0..1
	Block     int     // frames per write
}

// Command creates a new command that records a sine tone onto one track.
func Command(ctx *app.Context) *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use:   "overdub [tape.wav]",
		Short: "Record a sine tone onto one track",
		Long:  "Seek to --at and overwrite --frames of --channel with a sine tone through the ring buffer. Other tracks are left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.Settings.Tape.Path = args[0]
			ctx.Settings.Tape.Create = false

			sess := session.New(ctx.Settings, ctx.Logger(), ctx.Recorder())
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			info, _ := sess.Info()

			written, recErr := Record(sess.Context(), sess.Streamer(), info.SampleRate, opts)
			// Stop flushes the overdub to disk.
			if err := errors.Join(recErr, sess.Stop()); err != nil {
				return err
			}

			ctx.Logger().Info("overdub finished",
				logger.String("path", args[0]),
				logger.Int("channel", opts.Channel),
				logger.Int64("at", opts.At),
				logger.Int64("frames", written))
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames of %.1f Hz to channel %d at frame %d\n",
				written, opts.Frequency, opts.Channel, opts.At)
			return err
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "First frame to overwrite")
	cmd.Flags().IntVar(&opts.Channel, "channel", 0, "Track to record on (zero-based)")
	cmd.Flags().Int64Var(&opts.Frames, "frames", 48000, "Tone length in frames")
	cmd.Flags().Float64Var(&opts.Frequency, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().Float64Var(&opts.Gain, "gain", 0.5, "Tone amplitude (0..1)")
	cmd.Flags().IntVar(&opts.Block, "block", 1024, "Frames per write")
	return cmd
}

// Sine fills dst with a tone starting at sample offset.
func Sine(dst []float32, offset int64, sampleRate int, frequency, gain float64) {
	step := 2 * math.Pi * frequency / float64(sampleRate)
	for i := range dst {
		dst[i] = float32(gain * math.Sin(step*float64(offset+int64(i))))
	}
}

// Record writes the tone through the forward write path, waiting on the
// worker whenever the forward window is exhausted. It returns the number of
// frames written.
func Record(ctx context.Context, st *tape.Streamer, sampleRate int, opts Options) (int64, error) {
	switch {
	case opts.Channel < 0 || opts.Channel >= st.Channels():
		return 0, errors.Newf("invalid channel %d: tape has %d", opts.Channel, st.Channels()).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	case opts.At < 0 || opts.Frames < 0 || opts.Block <= 0 || sampleRate <= 0:
		return 0, errors.Newf("invalid overdub: at %d, frames %d, block %d", opts.At, opts.Frames, opts.Block).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	case opts.Gain < 0 || opts.Gain > 1:
		return 0, errors.Newf("invalid gain %.3f: want 0..1", opts.Gain).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}

	desired := st.Config().DesiredWindow()
	block := make([]float32, opts.Block)
	var written int64

	st.SeekAbsolute(opts.At)
	for written < opts.Frames {
		n := int(min(opts.Frames-written, int64(opts.Block)))
		Sine(block[:n], written, sampleRate, opts.Frequency, opts.Gain)

		unwritten := st.WriteForward(block[:n], opts.Channel)
		written += int64(n - unwritten)

		if unwritten == n {
			if err := st.WaitFilled(ctx, min(n, desired), 0); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
