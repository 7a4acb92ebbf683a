// Package cli implements the filesift command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "filesift",
	Short: "Detect high-level file operations from raw filesystem events",
	Long: `Filesift watches directories and reconstructs what actually happened
from the noise of raw filesystem events: editor atomic saves, safe
writes with backups, renames, batch updates by formatters and build
tools.

Instead of reporting six events for one editor save, filesift reports
one operation with a confidence score.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags override the config file and environment through the
		// same override channel the config loader already reads.
		if logLevel != "" {
			os.Setenv("FILESIFT_LOG_LEVEL", logLevel)
		}
		if logFormat != "" {
			os.Setenv("FILESIFT_LOG_FORMAT", logFormat)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("filesift %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
