package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ckcrowd/internal/agreement"
	"ckcrowd/internal/campaign"
)

func newAgreementCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "agreement <stage>",
		Short: "Show inter-rater agreement of a selection stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			if !kind.Definition().Selection() {
				return fmt.Errorf("%s collects proposals; agreement is only computed for selection stages", kind)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			var report agreement.Report
			if _, err := store.Read(kind, campaign.ArtifactAgreement, &report); err != nil {
				return stageArtifactError(kind, err)
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			consistent := report.Consistent(cfg.Agreement.Tolerance)
			rows := [][]string{
				{"Level", string(report.Level)},
				{"Raters per item", fmt.Sprint(report.Raters)},
				{"Items", fmt.Sprint(report.Items)},
				{"Excluded (incomplete)", fmt.Sprint(report.Excluded)},
				{"Krippendorff alpha", formatStatistic(report.Alpha)},
				{"Fleiss kappa", formatStatistic(report.Kappa)},
				{"Degenerate", yesNo(report.Degenerate)},
				{fmt.Sprintf("Consistent (tol %.2f)", cfg.Agreement.Tolerance), yesNo(consistent)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Agreement", kind.Label()}, rows, rightAligned(2)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the agreement report as JSON")
	return cmd
}
