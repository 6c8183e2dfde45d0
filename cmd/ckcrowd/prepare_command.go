package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/dataset"
	"ckcrowd/internal/workflow"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "prepare <stage>",
		Short: "Write the task batch a stage shows workers, from the previous stage's forward set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			output := strings.TrimSpace(outputPath)
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			var tasks []dataset.InputTask
			err = ctx.withRunner(func(r *workflow.Runner) error {
				var prepErr error
				tasks, prepErr = r.PrepareInput(kind)
				return prepErr
			})
			if err != nil {
				return err
			}
			if err := writeJSONLines(output, tasks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d %s tasks to %s\n", len(tasks), kind, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination JSON Lines file")
	return cmd
}
