package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vicomannen/winfade/internal/config"
	"github.com/vicomannen/winfade/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "winfade",
	Short: "Fade windows to semi-transparent while they are moved or resized",
	Long: `winfade watches for window move/resize interactions and fades the
window to a configured opacity for the duration of the drag, restoring
full opacity when it ends. Per-app include/exclude lists are supported.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "Path to the settings file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level: debug, info, warn, error")
}
