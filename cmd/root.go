package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/tapedeck/cmd/create"
	"github.com/tphakala/tapedeck/cmd/info"
	"github.com/tphakala/tapedeck/cmd/overdub"
	"github.com/tphakala/tapedeck/cmd/scan"
	"github.com/tphakala/tapedeck/cmd/version"
	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "tapedeck",
		Short:         "Tape transport over multi-track float WAV files",
		Long:          "Seek, play forward or in reverse and overdub float32 WAV tapes too large to hold in memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err) // flag names are static
	}

	versionCmd := version.Command(ctx)
	subcommands := []*cobra.Command{
		create.Command(ctx),
		info.Command(ctx),
		scan.Command(ctx),
		overdub.Command(ctx),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return ctx.Setup(cmd.Context(), configFile)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
// Flags override the config file and environment for the keys they bind.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config file (default: search ./config.yaml and the user config dir)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.Int("capacity", conf.DefaultCapacity, "Ring capacity in frames")
	flags.Int("headroom", conf.DefaultHeadroom, "Frames kept free between the forward and backward windows")
	flags.Int("minread", conf.DefaultMinRead, "Low-water mark in frames that triggers a refill")

	bindings := []struct{ key, flag string }{
		{"debug", "debug"},
		{"buffer.capacity", "capacity"},
		{"buffer.headroom", "headroom"},
		{"buffer.minread", "minread"},
	}
	for _, b := range bindings {
		if err := viper.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", b.flag, err)
		}
	}
	return nil
}
