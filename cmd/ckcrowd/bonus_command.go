package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/config"
	"ckcrowd/internal/fileutil"
	"ckcrowd/internal/logging"
	"ckcrowd/internal/notifications"
	"ckcrowd/internal/payout"
	"ckcrowd/internal/quality"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

func newBonusCommand(ctx *commandContext) *cobra.Command {
	bonusCmd := &cobra.Command{
		Use:   "bonus",
		Short: "Plan and send worker bonuses",
	}
	bonusCmd.AddCommand(newBonusPlanCommand(ctx))
	bonusCmd.AddCommand(newBonusSendCommand(ctx))
	bonusCmd.AddCommand(newBonusNotifyCommand(ctx))
	return bonusCmd
}

func newBonusPlanCommand(ctx *commandContext) *cobra.Command {
	var qualifiedPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <stage>",
		Short: "Compute bonus instructions for a completed stage and add them to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			var qualified map[string]bool
			if path := strings.TrimSpace(qualifiedPath); path != "" {
				if qualified, err = loadQualified(path); err != nil {
					return err
				}
			}

			var ledger payout.Ledger
			var added int
			err = ctx.withStore(func(cfg *config.Config, store *campaign.Store) error {
				var report quality.Report
				env, err := store.Read(kind, campaign.ArtifactWorkers, &report)
				if err != nil {
					return stageArtifactError(kind, err)
				}
				var subs []submission.Submission
				if _, err := store.Read(kind, campaign.ArtifactSubmissions, &subs); err != nil {
					return stageArtifactError(kind, err)
				}
				if ledger, err = readLedger(store, kind); err != nil {
					return err
				}
				policy := bonusPolicy(cfg, qualified)
				if policy.QualifiedOnly && qualified == nil {
					return fmt.Errorf("bonus.qualified_only is set; pass --qualified with a calibration report")
				}
				added = ledger.Merge(payout.Plan(kind, report.Records, subs, policy))
				return store.Write(kind, campaign.ArtifactPayouts, env.RunID, ledger)
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, ledger)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d new instructions added to the %s ledger\n", added, kind)
			printLedger(out, ledger)
			return nil
		},
	}

	cmd.Flags().StringVar(&qualifiedPath, "qualified", "", "Calibration report from `ckcrowd qualify --output`")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ledger as JSON")
	return cmd
}

func newBonusSendCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "send <stage>",
		Short: "Pay pending bonuses from the stage ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			var result payout.SendResult
			var sendErr error
			err = ctx.withStore(func(cfg *config.Config, store *campaign.Store) error {
				var ledger payout.Ledger
				env, err := store.Read(kind, campaign.ArtifactPayouts, &ledger)
				if errors.Is(err, campaign.ErrNotFound) {
					return fmt.Errorf("no bonus ledger for %s; run `ckcrowd bonus plan %s` first", kind, kind)
				}
				if err != nil {
					return err
				}
				market := payout.NewLogMarketplace(logger)
				result, sendErr = payout.Send(cmd.Context(), &ledger, market, logger, dryRun)
				if dryRun {
					return nil
				}
				if err := store.Write(kind, campaign.ArtifactPayouts, env.RunID, ledger); err != nil {
					return err
				}
				if result.Sent > 0 {
					notifier := notifications.NewService(cfg)
					if err := notifier.Publish(cmd.Context(), notifications.EventBonusesSent, notifications.Payload{
						"stage":  string(kind),
						"sent":   result.Sent,
						"amount": fmt.Sprintf("%.2f", result.Amount),
					}); err != nil {
						logging.WarnWithContext(logger, "notification failed", "notification_failure",
							logging.Error(err),
							logging.String(logging.FieldImpact, "operator was not notified"),
						)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return sendErr
			}
			verb := "Sent"
			if dryRun {
				verb = "Would send"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d bonuses totalling %.2f (%d skipped, %d failed)\n",
				verb, result.Sent, result.Amount, result.Skipped, result.Failed)
			return sendErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be paid without contacting the marketplace")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the send result as JSON")
	return cmd
}

func newBonusNotifyCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var message string

	cmd := &cobra.Command{
		Use:   "notify <stage>",
		Short: "Message every worker who received a bonus in the stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseStageArg(args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(subject) == "" || strings.TrimSpace(message) == "" {
				return fmt.Errorf("--subject and --message are required")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.readStore()
			if err != nil {
				return err
			}
			ledger, err := readLedger(store, kind)
			if err != nil {
				return err
			}
			var workers []string
			for _, in := range ledger.Instructions {
				if in.Sent {
					workers = append(workers, in.WorkerID)
				}
			}
			count, err := payout.Notify(cmd.Context(), payout.NewLogMarketplace(logger), workers, subject, message)
			fmt.Fprintf(cmd.OutOrStdout(), "Notified %d workers\n", count)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&message, "message", "", "Message body")
	return cmd
}

func readLedger(store *campaign.Store, kind stage.Kind) (payout.Ledger, error) {
	var ledger payout.Ledger
	if _, err := store.Read(kind, campaign.ArtifactPayouts, &ledger); err != nil && !errors.Is(err, campaign.ErrNotFound) {
		return payout.Ledger{}, err
	}
	return ledger, nil
}

func bonusPolicy(cfg *config.Config, qualified map[string]bool) payout.Policy {
	return payout.Policy{
		Rate:          cfg.Bonus.Rate,
		Baseline:      cfg.Bonus.Baseline,
		Scope:         payout.Scope(cfg.Bonus.Scope),
		GateOnQuality: cfg.Bonus.GateOnQuality,
		MinQuality:    cfg.Bonus.MinQuality,
		QualifiedOnly: cfg.Bonus.QualifiedOnly,
		Qualified:     qualified,
		MaxAmount:     cfg.Bonus.MaxAmount,
		Reason:        cfg.Bonus.Reason,
	}
}

func loadQualified(path string) (map[string]bool, error) {
	var report quality.CalibrationReport
	if err := fileutil.ReadJSON(path, &report); err != nil {
		return nil, fmt.Errorf("read calibration report: %w", err)
	}
	out := make(map[string]bool, len(report.Workers))
	for _, w := range report.Workers {
		out[w.WorkerID] = out[w.WorkerID] || w.Qualified
	}
	return out, nil
}

func printLedger(out io.Writer, ledger payout.Ledger) {
	rows := make([][]string, 0, len(ledger.Instructions))
	for _, in := range ledger.Instructions {
		status := "pending"
		switch {
		case in.Sent:
			status = "sent"
		case !in.Eligible:
			status = "skipped: " + in.SkipReason
		}
		rows = append(rows, []string{
			in.WorkerID,
			in.AssignmentID,
			fmt.Sprint(in.Units),
			fmt.Sprintf("%.2f", in.Amount),
			status,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Worker", "Assignment", "Units", "Amount", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	sent, pending := ledger.Totals()
	fmt.Fprintf(out, "Sent %.2f, pending %.2f\n", sent, pending)
}
