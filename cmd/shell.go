package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive numbered menu",
	Long: `Run the interactive menu: add, choose and play, next, previous, show,
stop, search and remove, selected by number. This is also what runs when
tracklist is started without a subcommand.

When standard input is not a terminal the menu and prompts are not
printed, so a script of choices can be piped in.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.serveMetrics(ctx)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	sh := newShell(a.sess, cmd.InOrStdin(), cmd.OutOrStdout(), interactive)
	if a.sess.StoreMissing() {
		fmt.Fprintf(sh.out, "No playlist file found (%s).\n\n", a.sess.PlaylistPath())
	} else {
		fmt.Fprintf(sh.out, "Playlist loaded from %s\n\n", a.sess.PlaylistPath())
	}

	return sh.run(ctx)
}

// shell is the numbered-menu front end over a session
type shell struct {
	sess   *session.Session
	in     *bufio.Reader
	out    io.Writer
	prompt bool // Print the menu and prompts
}

func newShell(sess *session.Session, in io.Reader, out io.Writer, prompt bool) *shell {
	return &shell{
		sess:   sess,
		in:     bufio.NewReader(in),
		out:    &syncWriter{w: out},
		prompt: prompt,
	}
}

// run reads menu choices until Exit or end of input. Playback is stopped
// on return.
func (sh *shell) run(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan session.Event, 4)
	go func() { _ = sh.sess.Watch(watchCtx, events) }()
	go sh.reportEvents(watchCtx, events)

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		_ = sh.sess.Stop(stopCtx)
	}()

	if sh.prompt {
		fmt.Fprintln(sh.out, "Welcome to Your Music Player")
	}

	for {
		if sh.prompt {
			sh.printMenu()
		}
		line, ok := sh.readLine("Enter your choice: ")
		if !ok {
			return nil
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprint(sh.out, "Invalid choice.\n\n")
			continue
		}

		switch choice {
		case 1:
			sh.add()
		case 2:
			sh.choose(ctx)
		case 3:
			sh.reportStep(timed(ctx, sh.sess.Next))
		case 4:
			sh.reportStep(timed(ctx, sh.sess.Prev))
		case 5:
			sh.show()
		case 6:
			fmt.Fprintln(sh.out, "Exiting...")
			return nil
		case 7:
			_, err := timed(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, sh.sess.Stop(ctx)
			})
			if err != nil {
				fmt.Fprintf(sh.out, "Error: %v\n\n", err)
			} else {
				fmt.Fprint(sh.out, "Music stopped.\n\n")
			}
		case 8:
			sh.search()
		case 9:
			sh.remove()
		default:
			fmt.Fprint(sh.out, "Invalid choice.\n\n")
		}
	}
}

func (sh *shell) printMenu() {
	fmt.Fprint(sh.out, `======== MUSIC PLAYER MENU ========
1. Add Song
2. Choose and Play a Song
3. Next Song
4. Previous Song
5. Show Playlist
6. Exit
7. Stop Music
8. Search Song
9. Remove Song
===================================

`)
}

// readLine prints prompt (when prompting) and reads one line without its
// line ending. ok is false at end of input with nothing read.
func (sh *shell) readLine(prompt string) (string, bool) {
	if sh.prompt {
		fmt.Fprint(sh.out, prompt)
	}
	line, err := sh.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", false
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// timed runs fn with a context bounding a single player call. The player
// process outlives that context.
func timed[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()
	return fn(ctx)
}

func (sh *shell) add() {
	name, ok := sh.readLine("Enter .wav filename: ")
	if !ok {
		return
	}
	_, err := sh.sess.Add(name)
	msg, _ := mutationMessage("Added", name, err)
	fmt.Fprint(sh.out, msg+"\n\n")
}

func (sh *shell) choose(ctx context.Context) {
	items := sh.sess.List()
	if len(items) == 0 {
		fmt.Fprint(sh.out, "Playlist is empty.\n\n")
		return
	}

	fmt.Fprintln(sh.out, "\nAvailable Songs:")
	for _, it := range items {
		fmt.Fprintf(sh.out, "   %d. %s\n", it.Position, it.Entry.Name)
	}
	fmt.Fprintln(sh.out)

	line, ok := sh.readLine("Enter song number to play: ")
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		fmt.Fprint(sh.out, "Invalid song number.\n\n")
		return
	}

	e, err := timed(ctx, func(ctx context.Context) (playlist.Entry, error) {
		return sh.sess.PlayIndex(ctx, n)
	})
	fmt.Fprint(sh.out, playMessage(e, err)+"\n\n")
}

func (sh *shell) reportStep(step session.Step, err error) {
	printSkipped(sh.out, step.Skipped)
	fmt.Fprint(sh.out, playMessage(step.Entry, err)+"\n\n")
}

func (sh *shell) show() {
	fmt.Fprintln(sh.out, "\n--- Playlist ---")
	for _, it := range sh.sess.List() {
		if it.Current {
			fmt.Fprintf(sh.out, "-> %s (Now Playing)\n", it.Entry.Name)
		} else {
			fmt.Fprintf(sh.out, "   %s\n", it.Entry.Name)
		}
	}
	fmt.Fprint(sh.out, "----------------\n\n")
}

func (sh *shell) search() {
	name, ok := sh.readLine("Enter song name to search: ")
	if !ok {
		return
	}
	if it, found := sh.sess.Search(name); found {
		fmt.Fprintf(sh.out, "Found: %s\n\n", it.Entry.Name)
	} else {
		fmt.Fprintf(sh.out, "Song not found: %s\n\n", name)
	}
}

func (sh *shell) remove() {
	name, ok := sh.readLine("Enter song name to remove: ")
	if !ok {
		return
	}
	msg, _ := mutationMessage("Removed", name, sh.sess.Remove(name))
	fmt.Fprint(sh.out, msg+"\n\n")
}

// reportEvents prints auto-advance results as they happen
func (sh *shell) reportEvents(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			printSkipped(sh.out, ev.Skipped)
			switch ev.Kind {
			case session.EventAdvanced:
				fmt.Fprintf(sh.out, "\n%s\n", playMessage(ev.Entry, nil))
			case session.EventExhausted:
				fmt.Fprintln(sh.out, "\nEnd of playlist.")
			case session.EventError:
				fmt.Fprintf(sh.out, "\n%s\n", playMessage(ev.Entry, ev.Err))
			}
		}
	}
}

