package info

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/audiofile"
)

// Header is the printable form of a tape header.
type Header struct {
	Path       string        `yaml:"path"`
	Format     int           `yaml:"format"`
	BitDepth   int           `yaml:"bit_depth"`
	SampleRate int           `yaml:"sample_rate"`
	Channels   int           `yaml:"channels"`
	Frames     int64         `yaml:"frames"`
	Duration   time.Duration `yaml:"duration"`
	DataOffset int64         `yaml:"data_offset"`
}

// Command creates a new command that prints a tape header.
func Command(ctx *app.Context) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info [tape.wav]",
		Short: "Print tape header information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.Settings.Tape.Path = args[0]

			h, err := ReadHeader(args[0])
			if err != nil {
				return err
			}
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(h); err != nil {
					return err
				}
				return enc.Close()
			case "table", "":
				return writeTable(cmd.OutOrStdout(), h)
			default:
				return fmt.Errorf("unknown output format %q: want table or yaml", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, yaml")
	return cmd
}

// ReadHeader opens path and returns its header.
func ReadHeader(path string) (Header, error) {
	f, err := audiofile.Open(path)
	if err != nil {
		return Header{}, err
	}
	info := f.Info()
	if err := f.Close(); err != nil {
		return Header{}, err
	}

	h := Header{
		Path:       path,
		Format:     info.Format,
		BitDepth:   info.BitDepth,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Frames:     info.Frames,
		DataOffset: info.DataOffset,
	}
	if info.SampleRate > 0 {
		h.Duration = time.Duration(float64(info.Frames) / float64(info.SampleRate) * float64(time.Second))
	}
	return h, nil
}

func writeTable(out io.Writer, h Header) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", h.Path)
	fmt.Fprintf(w, "Format:\t%d (%d-bit float)\n", h.Format, h.BitDepth)
	fmt.Fprintf(w, "Sample rate:\t%d Hz\n", h.SampleRate)
	fmt.Fprintf(w, "Channels:\t%d\n", h.Channels)
	fmt.Fprintf(w, "Frames:\t%d\n", h.Frames)
	fmt.Fprintf(w, "Duration:\t%s\n", h.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Data offset:\t%d\n", h.DataOffset)
	return w.Flush()
}
