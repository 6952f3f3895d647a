package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gameshelf/internal/resolution"
	"gameshelf/internal/search"
	"gameshelf/internal/services"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var page, pageSize int
	var strategy string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search both catalogs and merge the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withService(func(svc *resolution.Service) error {
				runCtx := services.WithOperation(cmd.Context(), "search")
				result, err := svc.Search.Search(runCtx, query, page, pageSize, search.Request{
					Strategy: strategy,
					UserID:   ctx.user(),
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				renderSearch(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", search.DefaultPageSize, "Results per page (max 50)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "sourceAFirst, sourceBFirst, combined, or parallel")
	return cmd
}

func renderSearch(cmd *cobra.Command, result search.Result) {
	out := cmd.OutOrStdout()
	if len(result.Games) == 0 {
		fmt.Fprintln(out, "No games found")
		return
	}
	rows := make([][]string, 0, len(result.Games))
	for _, rec := range result.Games {
		rows = append(rows, []string{
			rec.ID.String(),
			rec.Name,
			formatYear(rec),
			formatRating(rec.Rating),
			strings.Join(rec.Platforms, ", "),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Name", "Year", "Rating", "Platforms"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "Page %d of ~%d results via %s (sources: %s)\n",
		result.Page, result.Total, result.Strategy, strings.Join(result.Sources, ", "))
	if result.HasNextPage {
		fmt.Fprintf(out, "Next page: --page %d\n", result.Page+1)
	}
}
