package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hydra/internal/history"
	"hydra/internal/media"
	"hydra/internal/playback"
	"hydra/internal/playlistfile"
	"hydra/internal/tui"
	"hydra/internal/ui"
)

var (
	flagHistoryList  bool
	flagHistoryClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Play a recently opened file",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryList, "list", false, "Print history entries instead of picking one")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Remove all history entries")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := history.OpenDefault(cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if flagHistoryClear {
		ok, err := ui.Confirm("Clear history?")
		if errors.Is(err, ui.ErrCancelled) || (err == nil && !ok) {
			return nil
		}
		if err != nil {
			return err
		}
		return store.Clear()
	}

	entries, err := store.List(0)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	if flagHistoryList {
		return printHistory(os.Stdout, entries)
	}

	items := history.FormatForDisplay(entries)
	idx, err := ui.Select("History", items)
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	selected := entries[idx]
	log.WithField("path", selected.Path).Debug("resuming from history")

	if _, err := os.Stat(selected.Path); err != nil {
		if rmErr := store.Remove(selected.Path); rmErr != nil {
			log.WithError(rmErr).Warn("removing stale entry")
		}
		return fmt.Errorf("%s is no longer available: %w", selected.Path, err)
	}

	// The launched player opens its own store.
	store.Close()
	return launch(playlistfile.NewOS(cfg.MediaExtensions), tui.Options{
		Files:    []string{selected.Path},
		ResumeAt: selected.Position,
	})
}

// printHistory writes one entry per line: opened date, plays, position,
// title and path.
func printHistory(w io.Writer, entries []media.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPENED\tPLAYS\tPOSITION\tTITLE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s / %s\t%s\t%s\n",
			e.OpenedAt.Format("2006-01-02 15:04"),
			e.PlayCount,
			playback.FormatClock(e.Position),
			playback.FormatClock(e.Duration),
			e.Title,
			e.Path,
		)
	}
	return tw.Flush()
}
