package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/knowledge"
	"ckcrowd/internal/workflow"
)

func newDatasetCommand(ctx *commandContext) *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Assemble the labeled evaluation dataset",
	}
	datasetCmd.AddCommand(newDatasetBuildCommand(ctx))
	return datasetCmd
}

func newDatasetBuildCommand(ctx *commandContext) *cobra.Command {
	var resolutionsPath string
	var outputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the dataset from the adjudicated tasks",
		Long: `Build reassembles the dataset from the adjudicate stage's aggregated tasks.
Pass --resolutions to settle disagreements that were still open when the
stage ran. With --output the examples are also written as JSON Lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resolutions []adjudication.Resolution
			if path := strings.TrimSpace(resolutionsPath); path != "" {
				var err error
				if resolutions, err = adjudication.LoadResolutions(path); err != nil {
					return err
				}
			}
			var data workflow.DatasetArtifact
			err := ctx.withRunner(func(r *workflow.Runner) error {
				var buildErr error
				data, buildErr = r.BuildDataset(cmd.Context(), resolutions)
				return buildErr
			})
			if err != nil {
				return err
			}
			if output := strings.TrimSpace(outputPath); output != "" {
				if err := writeJSONLines(output, data.Examples); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, data.Stats)
			}
			printDatasetStats(cmd.OutOrStdout(), data)
			if outputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d examples to %s\n", len(data.Examples), outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resolutionsPath, "resolutions", "", "Operator resolution file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the examples as JSON Lines")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the dataset statistics as JSON")
	return cmd
}

func printDatasetStats(out io.Writer, data workflow.DatasetArtifact) {
	stats := data.Stats
	fmt.Fprintf(out, "%d examples: %d positives, %d negatives\n", stats.Examples, stats.Positives, stats.Negatives)
	if len(stats.Dimensions) == 0 {
		return
	}
	dims := make([]knowledge.Dimension, 0, len(stats.Dimensions))
	for dim := range stats.Dimensions {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	rows := make([][]string, 0, len(dims))
	for _, dim := range dims {
		rows = append(rows, []string{string(dim), fmt.Sprint(stats.Dimensions[dim])})
	}
	fmt.Fprintln(out, renderTable([]string{"Dimension", "Facts"}, rows, rightAligned(2)))
}
