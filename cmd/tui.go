package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/jfmyers9/tracklist/internal/tui"
	"github.com/spf13/cobra"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and play the playlist in a terminal UI",
	Long: `Display the playlist in a terminal UI with the current track, recent
plays and auto-advance as tracks finish.

Keys:
  enter  play the selected track
  n / p  next / previous available track
  s      stop
  a      add a track
  d      remove the selected track
  q      quit (stops playback)`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().Duration("refresh", 500*time.Millisecond, "Display refresh interval")
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.serveMetrics(ctx)

	events := make(chan session.Event, 8)
	go func() {
		if err := a.sess.Watch(ctx, events); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("Playback watcher stopped")
		}
	}()

	cfg := tui.DefaultConfig()
	if refresh, _ := cmd.Flags().GetDuration("refresh"); refresh > 0 {
		cfg.RefreshRate = refresh
	}
	runErr := tui.NewWithConfig(a.sess, cfg).Run(ctx, events)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), controlTimeout)
	defer stopCancel()
	if err := a.sess.Stop(stopCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to stop playback")
	}

	return runErr
}
