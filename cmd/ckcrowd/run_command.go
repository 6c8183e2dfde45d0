package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/fileutil"
	"ckcrowd/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var resolutionsPath string
	var gradesPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <stage>",
		Short: "Aggregate a stage's results file and forward the accepted items",
		Long: `Run reads the marketplace results of one stage, merges them into consensus
items, scores workers, and writes the stage artifacts to the campaign
directory. The previous stage must have completed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			in := workflow.Input{Path: strings.TrimSpace(inputPath)}
			if in.Path == "" {
				return fmt.Errorf("--input is required")
			}
			if path := strings.TrimSpace(resolutionsPath); path != "" {
				if in.Resolutions, err = adjudication.LoadResolutions(path); err != nil {
					return err
				}
			}
			if path := strings.TrimSpace(gradesPath); path != "" {
				if err := fileutil.ReadJSON(path, &in.Grades); err != nil {
					return fmt.Errorf("read grades: %w", err)
				}
			}

			var summary workflow.Summary
			err = ctx.withRunner(func(r *workflow.Runner) error {
				var runErr error
				summary, runErr = r.RunStage(cmd.Context(), kind, in)
				return runErr
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Results file (JSON array or JSON Lines)")
	cmd.Flags().StringVar(&resolutionsPath, "resolutions", "", "Operator resolution file (adjudicate stage only)")
	cmd.Flags().StringVar(&gradesPath, "grades", "", "JSON file of reviewer grades [{task_id, item_id, quality}]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func printSummary(out io.Writer, s workflow.Summary) {
	fmt.Fprintf(out, "%s run %s\n", s.Stage.Label(), s.RunID)
	rows := [][]string{
		{"Records", fmt.Sprint(s.Records)},
		{"Accepted records", fmt.Sprint(s.Accepted)},
		{"Skipped records", fmt.Sprint(s.Skipped)},
		{"Tasks", fmt.Sprint(s.Yield.Tasks)},
		{"Suppressed tasks", fmt.Sprint(s.Yield.SuppressedTasks)},
		{"Items", fmt.Sprint(s.Yield.Items)},
		{"Accepted items", fmt.Sprint(s.Yield.AcceptedItems)},
		{"Yield", formatPercent(s.YieldRate)},
		{"Forwarded tasks", fmt.Sprint(s.Forwarded)},
		{"Workers", fmt.Sprint(s.Workers)},
		{"Annotation quality", formatFloat(s.AnnotationQuality)},
	}
	if s.AnnotationAccuracy != nil {
		rows = append(rows, []string{"Annotation accuracy", formatFloat(*s.AnnotationAccuracy)})
	}
	if s.Agreement != nil {
		rows = append(rows,
			[]string{"Krippendorff alpha", formatStatistic(s.Agreement.Alpha)},
			[]string{"Fleiss kappa", formatStatistic(s.Agreement.Kappa)},
		)
	}
	if s.Stage.Definition().Terminal {
		rows = append(rows,
			[]string{"Disagreements", fmt.Sprint(s.Disagreements)},
			[]string{"Resolved", fmt.Sprint(s.Resolved)},
			[]string{"Dataset examples", fmt.Sprint(s.Examples)},
		)
	}
	rows = append(rows,
		[]string{"Near duplicates", fmt.Sprint(s.NearDuplicates)},
		[]string{"Head/tail conflicts", fmt.Sprint(s.HeadTailConflicts)},
	)
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, rightAligned(2)))
}
