package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/campaign"
	"ckcrowd/internal/stage"
)

func newAdjudicateCommand(ctx *commandContext) *cobra.Command {
	adjCmd := &cobra.Command{
		Use:   "adjudicate",
		Short: "Inspect and resolve expert disagreements",
	}
	adjCmd.AddCommand(newAdjudicateTemplateCommand(ctx))
	return adjCmd
}

func newAdjudicateTemplateCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a resolution file listing every open disagreement",
		Long: `Template writes a YAML resolution file with one entry per candidate the
experts did not rate unanimously. Edit the decision fields and pass the file
to ` + "`ckcrowd dataset build --resolutions`" + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			var review adjudication.Summary
			if _, err := store.Read(stage.Adjudicate, campaign.ArtifactAdjudication, &review); err != nil {
				return stageArtifactError(stage.Adjudicate, err)
			}
			output := strings.TrimSpace(outputPath)
			if output == "" {
				return adjudication.WriteTemplate(cmd.OutOrStdout(), review.Disagreements)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create template: %w", err)
			}
			if err := adjudication.WriteTemplate(file, review.Disagreements); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close template: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d disagreements to %s\n", len(review.Disagreements), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Template file (defaults to stdout)")
	return cmd
}
