package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gameshelf/internal/games"
	"gameshelf/internal/preferences"
	"gameshelf/internal/resolution"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change search preferences",
	}
	prefsCmd.AddCommand(newPrefsGetCommand(ctx))
	prefsCmd.AddCommand(newPrefsSetCommand(ctx))
	return prefsCmd
}

func newPrefsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the effective preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *resolution.Service) error {
				prefs, tier := svc.Preferences.Load(cmd.Context(), ctx.user())
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"preferences": prefs, "tier": tier})
				}
				renderPreferences(cmd, prefs)
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded from: %s\n", tier)
				return nil
			})
		},
	}
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	var source, strategy string
	var cacheEnabled, fallbackEnabled bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update preferences in every available tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *resolution.Service) error {
				prefs, _ := svc.Preferences.Load(cmd.Context(), ctx.user())
				if cmd.Flags().Changed("source") {
					parsed, err := games.ParseSource(source)
					if err != nil {
						return err
					}
					prefs.PreferredSource = parsed
				}
				if cmd.Flags().Changed("strategy") {
					prefs.SearchStrategy = strategy
				}
				if cmd.Flags().Changed("cache") {
					prefs.CacheEnabled = cacheEnabled
				}
				if cmd.Flags().Changed("fallback") {
					prefs.FallbackEnabled = fallbackEnabled
				}
				if err := prefs.Validate(); err != nil {
					return err
				}

				results := svc.Preferences.Save(cmd.Context(), ctx.user(), prefs)
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"preferences": prefs, "results": results})
				}
				renderPreferences(cmd, prefs)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "written"
					switch {
					case r.Skipped:
						status = "skipped"
					case !r.OK:
						status = "failed: " + r.Error
					}
					rows = append(rows, []string{r.Tier, status})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Tier", "Result"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Preferred catalog (catalogA or catalogB)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "sourceAFirst, sourceBFirst, combined, or parallel")
	cmd.Flags().BoolVar(&cacheEnabled, "cache", true, "Serve repeated searches from the result cache")
	cmd.Flags().BoolVar(&fallbackEnabled, "fallback", true, "Fall back to the other catalog when the first one fails")
	return cmd
}

func renderPreferences(cmd *cobra.Command, prefs preferences.Preferences) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(out,
		[]string{"Setting", "Value"},
		[][]string{
			{"Preferred source", string(prefs.PreferredSource)},
			{"Search strategy", prefs.SearchStrategy},
			{"Result cache", yesNo(prefs.CacheEnabled)},
			{"Fallback", yesNo(prefs.FallbackEnabled)},
		},
		nil,
	))
}
