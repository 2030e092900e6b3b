package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jfmyers9/tracklist/internal/history"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Long: `Show the most recent play requests, newest first, including attempts
that failed because the file was missing or the player could not start.

Plays older than history_retention_days are pruned automatically.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Number of plays to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	limit, _ := cmd.Flags().GetInt("limit")
	plays, err := a.sess.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	printHistory(cmd.OutOrStdout(), plays)

	total, err := a.sess.HistoryCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	if total > len(plays) {
		fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d plays shown)\n", len(plays), total)
	}
	return nil
}

// printHistory writes one line per play
func printHistory(w io.Writer, plays []history.Play) {
	if len(plays) == 0 {
		fmt.Fprintln(w, "No plays recorded.")
		return
	}

	for _, p := range plays {
		line := fmt.Sprintf("%s  %-7s  %s", p.PlayedAt.Local().Format("2006-01-02 15:04:05"), p.Outcome, p.Name)
		if p.Outcome == history.OutcomeFailed && p.Error != "" {
			line += "  (" + p.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}
