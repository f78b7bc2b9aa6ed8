package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
)

func newRunCmd() *cobra.Command {
	var (
		turnsPath    string
		contextsPath string
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a conversation file against a context-vector file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.eval.EvaluateFiles(ctx, turnsPath, contextsPath)
			if err != nil {
				return err
			}

			a.logger.Info("run complete",
				zap.String("run_id", report.RunID),
				zap.Int("pairs", report.Pairs),
				zap.Int("evaluated", len(report.Evaluations)),
				zap.Int("skipped", report.Skipped),
				zap.Float64("total_cost_usd", report.TotalCost),
			)

			if jsonOut {
				return printJSON(cmd, report)
			}
			printText(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&turnsPath, "turns", "", "path to the conversation turns file")
	cmd.Flags().StringVar(&contextsPath, "contexts", "", "path to the context vectors file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the full report as JSON")
	_ = cmd.MarkFlagRequired("turns")
	_ = cmd.MarkFlagRequired("contexts")

	return cmd
}

func printJSON(cmd *cobra.Command, report domain.RunReport) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printText(cmd *cobra.Command, report domain.RunReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "run %s: %d pairs, %d evaluated, %d skipped\n",
		report.RunID, report.Pairs, len(report.Evaluations), report.Skipped)
	if report.Turns.FallbackUsed {
		fmt.Fprintf(out, "note: turns file was malformed, salvage recovered %d records (%d spans dropped)\n",
			len(report.Turns.Records), report.Turns.Dropped)
	}
	if report.Contexts.FallbackUsed {
		fmt.Fprintf(out, "note: contexts file was malformed, salvage recovered %d records (%d spans dropped)\n",
			len(report.Contexts.Records), report.Contexts.Dropped)
	}

	for _, ev := range report.Evaluations {
		fmt.Fprintf(out, "\n--- pair %d ---\n", ev.Index+1)
		fmt.Fprintf(out, "query:        %s\n", truncate(ev.Query, 100))
		fmt.Fprintf(out, "relevance:    %.2f\n", ev.Verdict.RelevanceScore)
		fmt.Fprintf(out, "groundedness: %.2f\n", ev.Verdict.GroundednessScore)
		fmt.Fprintf(out, "reasoning:    %s\n", ev.Verdict.Reasoning)
		fmt.Fprintf(out, "latency:      %.4fs   cost: $%.8f\n",
			ev.Performance.Seconds, ev.Performance.CostUSD)
	}

	fmt.Fprintf(out, "\ntotal cost: $%.8f\n", report.TotalCost)
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
