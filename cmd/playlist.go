package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Append tracks to the playlist",
	Long: `Append one or more track file names to the end of the playlist.

Names are stored as given. Relative names are resolved against the library
directory (default: the playlist file's directory) when played. Duplicates
are allowed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a track from the playlist",
	Long:  `Remove the first entry whose name matches NAME exactly.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search NAME",
	Short: "Find a track in the playlist",
	Long: `Find the first entry whose name matches NAME exactly and print its position.

Exit codes:
  0 - Found
  1 - Not in the playlist`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the playlist",
	Long: `Show every entry in order. The current entry is marked with "->" and
entries whose file is missing are flagged.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntP("width", "w", 0, "Maximum name column width (0=unlimited)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	return addNames(cmd.OutOrStdout(), a.sess, args)
}

// addNames adds each name, reporting every outcome, and fails if any name
// was rejected
func addNames(w io.Writer, sess *session.Session, names []string) error {
	var failed []string
	for _, name := range names {
		_, err := sess.Add(name)
		msg, ok := mutationMessage("Added", name, err)
		fmt.Fprintln(w, msg)
		if !ok {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d names rejected", len(failed), len(names))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	msg, ok := mutationMessage("Removed", args[0], a.sess.Remove(args[0]))
	if !ok {
		return errors.New(msg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	it, ok := a.sess.Search(args[0])
	if !ok {
		return errors.New("Song not found: " + args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found: %s (position %d)\n", it.Entry.Name, it.Position)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	width, _ := cmd.Flags().GetInt("width")
	printPlaylist(cmd.OutOrStdout(), a.sess.List(), width)
	return nil
}

// printPlaylist writes the playlist with positions, a current marker and
// missing files flagged in an aligned column. maxWidth caps the name column.
func printPlaylist(w io.Writer, items []session.Item, maxWidth int) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Playlist is empty.")
		return
	}

	nameWidth := 0
	for _, it := range items {
		nameWidth = max(nameWidth, runewidth.StringWidth(it.Entry.Name))
	}
	if maxWidth > 0 && nameWidth > maxWidth {
		nameWidth = maxWidth
	}
	posWidth := len(fmt.Sprint(len(items)))

	for _, it := range items {
		marker := "  "
		if it.Current {
			marker = "->"
		}

		line := fmt.Sprintf("%s %*d. %s", marker, posWidth, it.Position, padToWidth(it.Entry.Name, nameWidth))
		if !it.Available {
			line += "  (missing)"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
