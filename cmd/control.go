package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/spf13/cobra"
)

// controlTimeout bounds starting or stopping the player
const controlTimeout = 5 * time.Second

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [N]",
	Short: "Play the current track or track number N",
	Long: `Play track number N (1-based, as shown by 'tracklist list'). Without N,
plays the current track, or the first track if none is selected.

The player keeps running after the command returns. Use --wait to stay in the
foreground and advance through the playlist as tracks finish.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Play the next available track",
	Long:  `Move to the next track whose file exists, skipping missing files, and play it.`,
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Play the previous available track",
	Long:  `Move to the previous track whose file exists, skipping missing files, and play it.`,
	Args:  cobra.NoArgs,
	RunE:  runPrev,
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback",
	Long:  `Stop the player started by an earlier play, next or prev command.`,
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(stopCmd)

	for _, c := range []*cobra.Command{playCmd, nextCmd, prevCmd} {
		c.Flags().Bool("wait", false, "Stay in the foreground until playback ends (Ctrl-C stops it)")
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	return control(cmd, func(ctx context.Context, sess *session.Session) (session.Step, error) {
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return session.Step{}, fmt.Errorf("%w: %q", playlist.ErrInvalidSelection, args[0])
			}
			e, err := sess.PlayIndex(ctx, n)
			return session.Step{Entry: e}, err
		}

		if _, ok := sess.Current(); !ok {
			e, err := sess.PlayIndex(ctx, 1)
			if errors.Is(err, playlist.ErrInvalidSelection) {
				return session.Step{}, session.ErrNoCurrent
			}
			return session.Step{Entry: e}, err
		}
		e, err := sess.Play(ctx)
		return session.Step{Entry: e}, err
	})
}

func runNext(cmd *cobra.Command, args []string) error {
	return control(cmd, func(ctx context.Context, sess *session.Session) (session.Step, error) {
		return sess.Next(ctx)
	})
}

func runPrev(cmd *cobra.Command, args []string) error {
	return control(cmd, func(ctx context.Context, sess *session.Session) (session.Step, error) {
		return sess.Prev(ctx)
	})
}

// control runs move and reports the result. Starting a track replaces a
// player left running by an earlier command. With --wait it then follows
// playback.
func control(cmd *cobra.Command, move func(context.Context, *session.Session) (session.Step, error)) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	step, err := move(ctx, a.sess)
	printSkipped(out, step.Skipped)
	if err != nil {
		return errors.New(playMessage(step.Entry, err))
	}
	fmt.Fprintln(out, playMessage(step.Entry, nil))

	wait, _ := cmd.Flags().GetBool("wait")
	if !wait {
		return nil
	}
	return follow(context.Background(), a.sess, a.cfg.AutoAdvance, out)
}

// follow blocks while playback continues, printing auto-advance events,
// until the playlist is exhausted or an interrupt stops playback
func follow(ctx context.Context, sess *session.Session, autoAdvance bool, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan session.Event, 4)
	go func() { _ = sess.Watch(ctx, events) }()

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), controlTimeout)
			defer cancel()
			if err := sess.Stop(stopCtx); err != nil {
				return fmt.Errorf("failed to stop playback: %w", err)
			}
			fmt.Fprintln(w, "Music stopped.")
			return nil
		case ev := <-events:
			printSkipped(w, ev.Skipped)
			switch ev.Kind {
			case session.EventFinished:
				if !autoAdvance {
					return nil
				}
			case session.EventAdvanced:
				fmt.Fprintln(w, playMessage(ev.Entry, nil))
			case session.EventExhausted:
				fmt.Fprintln(w, playMessage(playlist.Entry{}, playlist.ErrNoNext))
				return nil
			case session.EventError:
				return errors.New(playMessage(ev.Entry, ev.Err))
			}
		}
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	if err := a.sess.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Music stopped.")
	return nil
}
