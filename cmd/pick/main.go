package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryannaik/pick/internal/config"
	"github.com/aryannaik/pick/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

// app is what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pick",
		Short:         "Candidate directory with encyclopedia autofill",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if debug {
				level = "debug"
			}
			log, err := logger.New(logger.Config{Level: level, Development: debug})
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.cfg = cfg
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCommand(a),
		newListCommand(a),
		newStandingsCommand(a),
		newSeedCommand(a),
		newRemoveCommand(a),
		newVoteCommand(a),
		newLookupCommand(a),
		newSummaryCommand(a),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
