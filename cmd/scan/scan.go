package scan

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
	"github.com/tphakala/tapedeck/internal/session"
	"github.com/tphakala/tapedeck/internal/tape"
)

// Options controls a scan.
type Options struct {
	From      int64  // start position in frames
	Frames    int64  // frames to play; 0 plays to the end (or the start in reverse)
	Direction string // "forward" or "reverse"
	Block     int    // frames per read
}

// Result is what Play measured.
type Result struct {
	Levels     *Levels
	ShortReads int
	Elapsed    time.Duration
}

// Command creates a new command that plays a tape and reports its levels.
func Command(ctx *app.Context) *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use:   "scan [tape.wav]",
		Short: "Play a region of a tape and print per-channel levels",
		Long:  "Seek to --from, play --frames forward or in reverse through the ring buffer and print peak and RMS levels per channel.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.Settings.Tape.Path = args[0]
			ctx.Settings.Tape.Create = false

			sess := session.New(ctx.Settings, ctx.Logger(), ctx.Recorder())
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			info, _ := sess.Info()

			res, playErr := Play(sess.Context(), sess.Streamer(), info.Frames, opts)
			if err := errors.Join(playErr, sess.Stop()); err != nil {
				return err
			}

			ctx.Logger().Info("scan finished",
				logger.String("path", args[0]),
				logger.Int64("frames", res.Levels.Frames()),
				logger.Int("short_reads", res.ShortReads),
				logger.Duration("elapsed", res.Elapsed))
			return printLevels(cmd, res)
		},
	}

	cmd.Flags().Int64Var(&opts.From, "from", 0, "Start position in frames")
	cmd.Flags().Int64Var(&opts.Frames, "frames", 0, "Frames to play (0 = to the end of the tape)")
	cmd.Flags().StringVar(&opts.Direction, "direction", "forward", "Play direction: forward or reverse")
	cmd.Flags().IntVar(&opts.Block, "block", 1024, "Frames per read")
	return cmd
}

// Play seeks to opts.From and consumes frames the way a playback callback
// would, waiting on the worker whenever a read comes back empty. tapeFrames
// bounds a forward scan when opts.Frames is zero.
func Play(ctx context.Context, st *tape.Streamer, tapeFrames int64, opts Options) (*Result, error) {
	reverse := false
	switch opts.Direction {
	case "forward", "":
	case "reverse", "backward":
		reverse = true
	default:
		return nil, errors.Newf("invalid direction %q: want forward or reverse", opts.Direction).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.Block <= 0 || opts.From < 0 || opts.Frames < 0 {
		return nil, errors.Newf("invalid scan range: from %d, frames %d, block %d", opts.From, opts.Frames, opts.Block).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}

	remaining := opts.Frames
	if remaining == 0 {
		if reverse {
			remaining = opts.From
		} else {
			remaining = max(tapeFrames-opts.From, 0)
		}
	}
	if reverse {
		// Nothing precedes frame zero.
		remaining = min(remaining, opts.From)
	}

	desired := st.Config().DesiredWindow()
	res := &Result{Levels: NewLevels(st.Channels())}
	start := time.Now()

	st.SeekAbsolute(opts.From)
	for remaining > 0 {
		n := int(min(remaining, int64(opts.Block)))

		var got []tape.Frame
		if reverse {
			got = st.ReadBackwardAllChannels(n)
		} else {
			got = st.ReadForwardAllChannels(n)
		}
		res.Levels.Add(got)
		remaining -= int64(len(got))

		if len(got) < n {
			res.ShortReads++
		}
		if len(got) == 0 {
			need := min(n, desired)
			var err error
			if reverse {
				err = st.WaitFilled(ctx, 0, need)
			} else {
				err = st.WaitFilled(ctx, need, 0)
			}
			if err != nil {
				return res, err
			}
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func printLevels(cmd *cobra.Command, res *Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Channel\tPeak dBFS\tRMS dBFS\t\n")
	for ch := range len(res.Levels.peak) {
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t\n", ch, DBFS(res.Levels.Peak(ch)), DBFS(res.Levels.RMS(ch)))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d frames in %s, %d short reads\n",
		res.Levels.Frames(), res.Elapsed.Round(time.Millisecond), res.ShortReads)
	return err
}
