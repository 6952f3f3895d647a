package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"gameshelf/internal/games"
	"gameshelf/internal/resolution"
	"gameshelf/internal/services"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Map catalog IDs onto the other catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *resolution.Service) error {
				runCtx := services.WithOperation(cmd.Context(), "resolve")
				mappings := svc.Resolver.ResolveMany(runCtx, ids)
				if ctx.jsonOutput() {
					out := make(map[string]*games.IDMapping, len(ids))
					for _, id := range ids {
						if m, ok := mappings[id]; ok {
							out[id.String()] = &m
						} else {
							out[id.String()] = nil
						}
					}
					return writeJSON(cmd, out)
				}

				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					m, ok := mappings[id]
					if !ok {
						rows = append(rows, []string{id.String(), "-", "-", "-", "no confident match"})
						continue
					}
					method := "fuzzy"
					if m.Override {
						method = "override"
					}
					rows = append(rows, []string{id.String(), m.To.String(), m.GameName, fmt.Sprintf("%.2f", m.Confidence), method})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"From", "To", "Name", "Confidence", "Method"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id>...",
		Short: "Fetch records for many IDs in batched calls",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *resolution.Service) error {
				runCtx := services.WithOperation(cmd.Context(), "fetch")
				return printRecords(cmd, ctx, ids, svc.Bulk.FetchMany(runCtx, ids))
			})
		},
	}
}

func newEnhanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enhance <id>...",
		Short: "Fetch records and repair placeholders by validating them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *resolution.Service) error {
				runCtx := services.WithOperation(cmd.Context(), "enhance")
				return printRecords(cmd, ctx, ids, svc.Validation.Enhance(runCtx, ids))
			})
		},
	}
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>...",
		Short: "Check that IDs exist in their catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *resolution.Service) error {
				runCtx := services.WithOperation(cmd.Context(), "validate")
				outcomes := svc.Validation.ValidateMany(runCtx, ids)
				if ctx.jsonOutput() {
					out := make(map[string]games.ValidationOutcome, len(outcomes))
					for id, outcome := range outcomes {
						out[id.String()] = outcome
					}
					return writeJSON(cmd, out)
				}

				rows := make([][]string, 0, len(outcomes))
				for _, id := range uniqueIDs(ids) {
					outcome := outcomes[id]
					reason := string(outcome.Reason)
					if reason == "" {
						reason = "-"
					}
					rows = append(rows, []string{id.String(), yesNo(outcome.IsValid), reason, fmt.Sprintf("%d", outcome.RetryCount)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Valid", "Reason", "Retries"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func printRecords(cmd *cobra.Command, ctx *commandContext, ids []games.ID, records map[games.ID]games.Record) error {
	if ctx.jsonOutput() {
		out := make(map[string]games.Record, len(records))
		for id, rec := range records {
			out[id.String()] = rec
		}
		return writeJSON(cmd, out)
	}
	rows := make([][]string, 0, len(records))
	for _, id := range uniqueIDs(ids) {
		rec := records[id]
		rows = append(rows, []string{id.String(), rec.Name, formatYear(rec), formatRating(rec.Rating), recordStatus(rec)})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Name", "Year", "Rating", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

// uniqueIDs keeps the first occurrence of each id in input order.
func uniqueIDs(ids []games.ID) []games.ID {
	out := make([]games.ID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
