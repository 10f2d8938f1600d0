package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coursesync",
	Short: "Course draft synchronization and normalization engine",
	Long: `coursesync keeps course drafts consistent between an editing surface,
a local draft store and a remote course authority.

Quick start:
  coursesync serve                # Run the reference course authority
  coursesync normalize course.json  # Upgrade a legacy course document

Management:
  coursesync courses list         # List courses after hydration
  coursesync validate             # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "coursesync.yaml", "config file path")
}
