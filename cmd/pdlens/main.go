// Command pdlens explains which fMRI features drive a Parkinson's disease
// classifier.
package main

import (
	"fmt"
	"os"

	"pdlens/internal"
	"pdlens/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cliState is shared by every subcommand once the root pre-run has loaded
// the environment.
type cliState struct {
	cfg    *config.Config
	logger *internal.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "pdlens",
		Short:         "Feature importance interpretation for fMRI Parkinson's classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err == nil {
				internal.DefaultLogger.Debug("loaded .env")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = internal.NewLogger(internal.ParseLevel(cfg.LogLevel))
			internal.DefaultLogger = state.logger
			return nil
		},
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(state),
		newNamesCmd(state),
		newCategorizeCmd(),
		newServeCmd(state),
		newMigrateCmd(state),
		newSynthCmd(state),
	)
	return rootCmd
}
