/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	playlistFlag    string
	logLevelFlag    string
	logFileFlag     string
	metricsAddrFlag string
)

// commandName is the running subcommand, attached to every log line
var commandName string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracklist",
	Short: "Playlist manager and player for local audio files",
	Long: `tracklist keeps an ordered playlist of audio files in a plain text file
(one file name per line) and plays them through a command-line player.

Run without a subcommand to get the interactive numbered menu. The same
operations are available as one-shot commands (add, remove, search, list,
play, next, prev, stop, now, history) and as a terminal UI (tui).

Navigation skips entries whose file is missing. The current entry is
remembered between runs.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		commandName = cmd.Name()
	}

	rootCmd.PersistentFlags().StringVarP(&playlistFlag, "playlist", "P", "", "Playlist file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&metricsAddrFlag, "metrics-addr", "", "Serve /metrics, /healthz and /playlist on this address (shell and tui)")
}
