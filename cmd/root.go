package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/brogergvhs/cbzmaker/internal/config"
	"github.com/brogergvhs/cbzmaker/internal/ui"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagConfigFile   string
)

var rootCmd = &cobra.Command{
	Use:   "cbzmaker",
	Short: "Download chapter image sets into CBZ archives and merge them into volumes",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "load this YAML or TOML file instead of the active profile")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(opts config.Options) (*config.Config, string, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.File = flagConfigFile
	opts.Debug = flagDebug

	return config.LoadMerged(opts)
}

// newRunLogger returns the command logger, tagged with a fresh run id so the
// lines of concurrent or repeated runs can be told apart.
func newRunLogger(cfg *config.Config) *log.Logger {
	return ui.NewLogger(os.Stderr, cfg.Debug).With("run", uuid.NewString()[:8])
}

// override stores v in dst when the flag was given on the command line, so
// unset flags keep the config value.
func override[T any](f *pflag.FlagSet, name string, dst *T, v T) {
	if f.Changed(name) {
		*dst = v
	}
}
