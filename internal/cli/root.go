// Package cli provides the command-line interface for floodpan.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// DefaultConfigDir holds config.yaml and .env.
const DefaultConfigDir = ".floodpan"

var configDir = DefaultConfigDir

var rootCmd = &cobra.Command{
	Use:   "floodpan",
	Short: "Collect and classify disaster posts from news and social sources",
	Long: "floodpan searches Vietnamese news sites, RSS feeds, and social networks for " +
		"disaster-related posts, filters them by date and keyword, classifies them, and " +
		"caches results per query.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "floodpan %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", DefaultConfigDir, "config directory (config.yaml, .env)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
