package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which stages have completed and which can run next",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			statuses, err := store.Status()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, statuses)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Campaign "+store.Dir(), colorize) {
				fmt.Fprintln(out, line)
			}
			for _, st := range statuses {
				kind := statusInfo
				message := "ready to run"
				switch {
				case st.Completed:
					kind = statusOK
					message = completedMessage(store, st)
				case !st.Ready:
					kind = statusWarn
					message = st.Detail
				}
				fmt.Fprintln(out, renderStatusLine(st.Kind.Label(), kind, message, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stage status as JSON")
	return cmd
}

func completedMessage(store *campaign.Store, st campaign.StageStatus) string {
	var summary workflow.Summary
	if _, err := store.Read(st.Kind, campaign.ArtifactSummary, &summary); err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			return "run " + st.RunID
		}
		return "summary unreadable: " + err.Error()
	}
	return fmt.Sprintf("%d tasks, %d/%d items accepted, %d forwarded",
		summary.Yield.Tasks, summary.Yield.AcceptedItems, summary.Yield.Items, summary.Forwarded)
}
