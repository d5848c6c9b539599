package main

import (
	"github.com/spf13/cobra"
	"github.com/vytor/wordflash/internal/logger"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dbFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &dbFlag)

	rootCmd := &cobra.Command{
		Use:           "wordflash",
		Short:         "Spaced repetition flashcards from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logger.WARN
			if verbose {
				level = logger.DEBUG
			}
			logger.SetDefault(logger.New(
				logger.WithLevel(level),
				logger.WithOutput(cmd.ErrOrStderr()),
			))
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newStudyCommand(ctx))

	return rootCmd
}
