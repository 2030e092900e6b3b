/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/jfmyers9/tracklist/internal/player"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Display the track a previous play, next or prev command started.

The output format can be customized in ~/.config/tracklist/config.yaml
using a Go template. Available fields: .Name, .Position, .Total, .Playing,
.Available

Exit codes:
  0 - A track is playing (or selected, with --selected)
  1 - Nothing playing`,
	Args: cobra.NoArgs,
	RunE: runNow,
}

// NowPlaying is the data passed to the now output template
type NowPlaying struct {
	Name      string
	Position  int
	Total     int
	Playing   bool
	Available bool
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	// Add marquee flag to enable scrolling
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
	nowCmd.Flags().Bool("selected", false, "Print the current track even when nothing is playing")
}

func runNow(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	// Check for format flag override
	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	cur, ok := a.sess.Current()
	if !ok {
		a.close()
		os.Exit(1)
		return nil
	}

	saved := a.sess.Saved()
	now := NowPlaying{
		Name:      cur.Entry.Name,
		Position:  cur.Position,
		Total:     len(a.sess.List()),
		Playing:   saved.Playing && player.PIDAlive(saved.PlayerPID),
		Available: cur.Available,
	}

	// If not playing, exit with code 1
	selected, _ := cmd.Flags().GetBool("selected")
	if !now.Playing && !selected {
		a.close()
		os.Exit(1)
		return nil
	}

	// Format and print output
	output, err := formatNowPlaying(now, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	// Apply width padding/marquee if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee, _ := cmd.Flags().GetBool("marquee")
	if !marquee && !cmd.Flags().Changed("marquee") {
		// Flag not set, use config default
		marquee = cfg.MarqueeEnabled
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// formatNowPlaying applies the template to the track data
func formatNowPlaying(now NowPlaying, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, now); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}
