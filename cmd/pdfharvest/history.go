// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdfharvest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs, or the downloads of one run",
	Long: `History reads the run ledger kept in the output directory. Without
arguments it lists the most recent runs, newest first. Given a run ID it
lists every link that run attempted and what happened to it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringP("output-dir", "o", defaultOutputDir, "output directory holding the history database")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if _, err := os.Stat(history.Path(outputDir)); err != nil {
		return fmt.Errorf("no history found in %s", outputDir)
	}

	store, err := history.NewStore(outputDir)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		downloads, err := store.Downloads(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, downloads)
		}
		formatDownloads(w, downloads)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []history.Run{}
		}
		return writeJSON(w, runs)
	}
	formatRuns(w, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %-8s  %5s  %5s  %5s  %5s\n",
		"RUN ID", "STARTED", "DURATION", "FOUND", "OK", "FAIL", "SKIP")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %-8s  %5d  %5d  %5d  %5d\n",
			r.RunID,
			r.StartTime.Local().Format(time.DateTime),
			r.EndTime.Sub(r.StartTime).Round(time.Second),
			r.Found, r.Downloaded, r.Failed, r.Skipped)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func formatDownloads(w io.Writer, downloads []history.Download) {
	for _, d := range downloads {
		switch {
		case d.Error != "":
			fmt.Fprintf(w, "%-8s %s: %s\n", d.Outcome, d.URL, d.Error)
		default:
			fmt.Fprintf(w, "%-8s %s -> %s (%d bytes)\n", d.Outcome, d.URL, d.Filepath, d.Size)
		}
	}
	fmt.Fprintf(w, "\n%d downloads\n", len(downloads))
}
