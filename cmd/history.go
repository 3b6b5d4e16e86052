/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jacobarthurs/pgguard/internal/config"
	"github.com/jacobarthurs/pgguard/internal/history"
	"github.com/jacobarthurs/pgguard/internal/output"

	"github.com/spf13/cobra"
)

const queryPreviewLen = 60

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded analyses",
	Long: `Show the analyses recorded by "pgguard analyze --save" and the HTTP API,
newest first, or aggregate them into a heatmap of recurring issues.`,
}

func openHistory() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.NewStore(path), nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded analyses, newest first",
	Example: `  pgguard history list
  pgguard history list --limit 5 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")
		if err := validateFormat(format, "text", "json"); err != nil {
			return err
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		records, err := store.Load()
		if err != nil {
			return err
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		if format == "json" {
			return output.RenderJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No history recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTABLE\tISSUES\tACTION\tQUERY")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				r.Date.Format(time.DateTime), r.Table, len(r.Advice), r.Action, preview(r.Query))
		}
		return tw.Flush()
	},
}

var historyHeatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Count recorded issues by name, table and hour",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "text", "json"); err != nil {
			return err
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		h, err := store.Heatmap()
		if err != nil {
			return err
		}

		if format == "json" {
			return output.RenderJSON(cmd.OutOrStdout(), h)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		writeCounts(tw, "ISSUE", h.Issues)
		writeCounts(tw, "TABLE", h.ByTable)
		writeCounts(tw, "HOUR (UTC)", h.ByHour)
		return tw.Flush()
	},
}

func writeCounts(tw *tabwriter.Writer, title string, counts map[string]int) {
	fmt.Fprintf(tw, "%s\tCOUNT\n", title)
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
	}
	fmt.Fprintln(tw)
}

func preview(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > queryPreviewLen {
		return q[:queryPreviewLen-3] + "..."
	}
	return q
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyHeatmapCmd)
	historyListCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	historyListCmd.Flags().IntP("limit", "n", 0, "Show at most n records")
	historyHeatmapCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}
