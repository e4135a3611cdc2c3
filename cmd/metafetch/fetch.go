package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adeilh/metafetch/batch"
	"github.com/adeilh/metafetch/tmdb"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var source string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "fetch <id> [id...]",
		Short: "Fetch TMDB /find records for one or more ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			results := a.Batch.Fetch(cmd.Context(), args, source)

			if wantJSON(cmd, jsonOut) {
				return writeJSON(cmd, map[string]any{"results": results})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Found", "Movies", "TV", "Episodes"},
				resultRows(results),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", tmdb.DefaultSource, "External id namespace passed to TMDB")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON even on a terminal")
	return cmd
}

func resultRows(results []batch.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.ID,
			yesNo(r.Found()),
			countOf(r.Record, "movie_results"),
			countOf(r.Record, "tv_results"),
			countOf(r.Record, "tv_episode_results"),
		})
	}
	return rows
}

func countOf(rec tmdb.Record, field string) string {
	if rec == nil {
		return "-"
	}
	items, _ := rec[field].([]any)
	return strconv.Itoa(len(items))
}
