package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Persistence modes
const (
	PersistWriteThrough = "write-through" // Save after every add/remove
	PersistDeferred     = "deferred"      // Save on flush (exit / end of command)
)

// Config holds application configuration
type Config struct {
	// Playlist store file, one track name per line
	// Default: "playlist.txt" (relative to the working directory)
	PlaylistFile string

	// Directory relative track names are resolved against
	// Default: the directory containing PlaylistFile
	LibraryDir string

	// Directory for session state and play history
	// Default: ~/.local/share/tracklist
	DataDir string

	// Longest accepted track name in bytes
	MaxNameLength int

	// PersistWriteThrough or PersistDeferred
	PersistMode string

	// Advance to the next available track when playback finishes
	AutoAdvance bool

	// How often the playback watcher checks the player (in milliseconds)
	WatchInterval int

	// Plays older than this are pruned from history
	HistoryRetentionDays int

	// External player command
	Player PlayerConfig

	// Output format template for the now command
	// Default: "{{.Name}}"
	OutputFormat string

	// Fixed output width for the now command (0 = disabled)
	OutputWidth int

	// Marquee scrolling for the now command
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string
}

// PlayerConfig holds the external player command
type PlayerConfig struct {
	Command string   // Empty selects a platform default
	Args    []string // "{}" is replaced by the file path; otherwise it is appended
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("playlist_file", "playlist.txt")
	v.SetDefault("library_dir", "")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("max_name_length", 4096)
	v.SetDefault("persist_mode", PersistWriteThrough)
	v.SetDefault("auto_advance", true)
	v.SetDefault("watch_interval", 500)
	v.SetDefault("history_retention_days", 30)
	v.SetDefault("player.command", "")
	v.SetDefault("player.args", []string{})
	v.SetDefault("output_format", "{{.Name}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables (TRACKLIST_PLAYER_COMMAND, ...)
	v.SetEnvPrefix("TRACKLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		PlaylistFile:         v.GetString("playlist_file"),
		LibraryDir:           v.GetString("library_dir"),
		DataDir:              v.GetString("data_dir"),
		MaxNameLength:        v.GetInt("max_name_length"),
		PersistMode:          v.GetString("persist_mode"),
		AutoAdvance:          v.GetBool("auto_advance"),
		WatchInterval:        v.GetInt("watch_interval"),
		HistoryRetentionDays: v.GetInt("history_retention_days"),
		Player: PlayerConfig{
			Command: v.GetString("player.command"),
			Args:    v.GetStringSlice("player.args"),
		},
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	switch c.PersistMode {
	case PersistWriteThrough, PersistDeferred:
	default:
		return fmt.Errorf("invalid persist_mode %q (must be %q or %q)",
			c.PersistMode, PersistWriteThrough, PersistDeferred)
	}
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("max_name_length must be positive, got %d", c.MaxNameLength)
	}
	if c.PlaylistFile == "" {
		return fmt.Errorf("playlist_file must not be empty")
	}
	return nil
}

// ResolvedLibraryDir returns LibraryDir, defaulting to the playlist's
// directory
func (c *Config) ResolvedLibraryDir() string {
	if c.LibraryDir != "" {
		return c.LibraryDir
	}
	return filepath.Dir(c.PlaylistFile)
}

// StateFile returns the path of the session state file
func (c *Config) StateFile() string {
	return filepath.Join(c.DataDir, "state.json")
}

// HistoryDB returns the path of the play history database
func (c *Config) HistoryDB() string {
	return filepath.Join(c.DataDir, "history.db")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "tracklist")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tracklist")
	}
	return filepath.Join(homeDir, ".local", "share", "tracklist")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("playlist_file", c.PlaylistFile)
	v.Set("library_dir", c.LibraryDir)
	v.Set("data_dir", c.DataDir)
	v.Set("max_name_length", c.MaxNameLength)
	v.Set("persist_mode", c.PersistMode)
	v.Set("auto_advance", c.AutoAdvance)
	v.Set("watch_interval", c.WatchInterval)
	v.Set("history_retention_days", c.HistoryRetentionDays)
	v.Set("player.command", c.Player.Command)
	v.Set("player.args", c.Player.Args)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)

	// Write to file
	return v.WriteConfigAs(configFile)
}
