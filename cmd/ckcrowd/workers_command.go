package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/quality"
	"ckcrowd/internal/stage"
)

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "workers <stage>",
		Short: "Rank workers of a stage by quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			var report quality.Report
			if _, err := store.Read(kind, campaign.ArtifactWorkers, &report); err != nil {
				return stageArtifactError(kind, err)
			}
			report.Records = quality.Rank(report.Records)
			if limit > 0 && len(report.Records) > limit {
				report.Records = report.Records[:limit]
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			printWorkerReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the worker report as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the top N workers")
	cmd.AddCommand(newWorkersMergeCommand(ctx))
	return cmd
}

func newWorkersMergeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Join worker records across every completed stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			records := make(map[stage.Kind][]quality.Record)
			for _, kind := range stage.All() {
				var report quality.Report
				if _, err := store.Read(kind, campaign.ArtifactWorkers, &report); err != nil {
					if errors.Is(err, campaign.ErrNotFound) {
						continue
					}
					return err
				}
				records[kind] = report.Records
			}
			histories := quality.MergeStages(records)
			if asJSON {
				return writeJSON(cmd, histories)
			}

			headers := []string{"Worker"}
			for _, kind := range stage.All() {
				headers = append(headers, string(kind))
			}
			headers = append(headers, "Points", "Reviewed", "Quality")
			rows := make([][]string, 0, len(histories))
			for _, h := range histories {
				row := []string{h.WorkerID}
				for _, kind := range stage.All() {
					if rec, ok := h.Stages[kind]; ok {
						row = append(row, fmt.Sprintf("%d (%s)", rec.Assignments, formatFloat(rec.Quality)))
					} else {
						row = append(row, "-")
					}
				}
				row = append(row, fmt.Sprint(h.Points), fmt.Sprint(h.Reviewed), formatFloat(h.Quality))
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, rightAligned(len(headers))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print merged records as JSON")
	return cmd
}

func printWorkerReport(out io.Writer, report quality.Report) {
	fmt.Fprintf(out, "%s: %d workers, %d assignments, %d tasks\n",
		report.Stage.Label(), report.Workers, report.Assignments, report.Tasks)
	fmt.Fprintf(out, "Annotation quality %s over %d graded items", formatFloat(report.AnnotationQuality), report.Reviewed)
	if report.AnnotationAccuracy != nil {
		fmt.Fprintf(out, ", accuracy %s", formatFloat(*report.AnnotationAccuracy))
	}
	fmt.Fprintln(out)

	selection := report.Stage.Definition().Selection()
	rows := make([][]string, 0, len(report.Records))
	for _, rec := range report.Records {
		rows = append(rows, []string{
			rec.WorkerID,
			fmt.Sprint(rec.Assignments),
			fmt.Sprint(rec.Items),
			fmt.Sprint(rec.Contributions(selection)),
			fmt.Sprint(rec.Reviewed),
			fmt.Sprint(rec.Points),
			formatFloat(rec.Quality),
			formatFloat(rec.MeanEffectiveElapsed),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Worker", "Assignments", "Items", "Contributions", "Graded", "Points", "Quality", "Mean time (s)"},
		rows,
		rightAligned(8),
	))
}

func stageArtifactError(kind stage.Kind, err error) error {
	if errors.Is(err, campaign.ErrNotFound) {
		return fmt.Errorf("%s has not run yet: %w", kind, err)
	}
	return err
}
