package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfmyers9/tracklist/internal/config"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
	Long: `Print the effective configuration (file, environment and flag overrides
applied), or write it to ~/.config/tracklist/config.yaml with 'config init'.

Environment variables use the TRACKLIST_ prefix, for example
TRACKLIST_PLAYER_COMMAND=mpv.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	player := cfg.Player.Command
	if player == "" {
		player = "(platform default)"
	}
	if len(cfg.Player.Args) > 0 {
		player += " " + strings.Join(cfg.Player.Args, " ")
	}

	fmt.Fprintf(w, "config_file:            %s\n", configFile())
	fmt.Fprintf(w, "playlist_file:          %s\n", cfg.PlaylistFile)
	fmt.Fprintf(w, "library_dir:            %s\n", cfg.ResolvedLibraryDir())
	fmt.Fprintf(w, "data_dir:               %s\n", cfg.DataDir)
	fmt.Fprintf(w, "persist_mode:           %s\n", cfg.PersistMode)
	fmt.Fprintf(w, "max_name_length:        %d\n", cfg.MaxNameLength)
	fmt.Fprintf(w, "auto_advance:           %t\n", cfg.AutoAdvance)
	fmt.Fprintf(w, "watch_interval:         %dms\n", cfg.WatchInterval)
	fmt.Fprintf(w, "history_retention_days: %d\n", cfg.HistoryRetentionDays)
	fmt.Fprintf(w, "player:                 %s\n", player)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile()
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

func configFile() string {
	return filepath.Join(config.GetConfigDir(), "config.yaml")
}
