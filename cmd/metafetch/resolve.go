package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "resolve <kitsu-id>",
		Short: "Resolve a Kitsu id to an IMDB id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			res := a.Kitsu.Resolve(cmd.Context(), args[0], mediaType)

			if wantJSON(cmd, jsonOut) {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kitsu", "Resolved", "ID"},
				[][]string{{args[0], yesNo(res.Resolved), res.ID}},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&mediaType, "type", "t", "series", "Addon catalog type (series, movie)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON even on a terminal")
	return cmd
}
