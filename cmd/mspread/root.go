package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dd0wney/mspread/pkg/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "mspread",
		Short: "Malware spread simulation engine",
		Long: `mspread builds synthetic device networks (scale-free, small-world,
random, complete or segmented) and simulates worm, virus and ransomware
propagation across them, step by step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is fine; a malformed one is not.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			level := logLevel
			if !cmd.Flags().Changed("log-level") {
				if env := os.Getenv("LOG_LEVEL"); env != "" {
					level = env
				}
			}
			logging.SetDefaultLogger(logging.NewJSONLogger(cmd.ErrOrStderr(), logging.ParseLevel(level)))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newDemoCmd(),
		newRunCmd(),
		newStatsCmd(),
		newExportCmd(),
	)
	return root
}
