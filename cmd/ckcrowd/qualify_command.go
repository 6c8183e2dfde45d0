package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ckcrowd/internal/config"
	"ckcrowd/internal/fileutil"
	"ckcrowd/internal/quality"
	"ckcrowd/internal/services"
)

func newQualifyCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var outputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "Grade calibration quiz responses and decide who qualifies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input := strings.TrimSpace(inputPath)
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			responses, err := loadQuizResponses(input)
			if err != nil {
				return err
			}
			report := quality.Calibrate(responses, qualificationCriteria(cfg))
			if output := strings.TrimSpace(outputPath); output != "" {
				if err := fileutil.WriteJSONAtomic(output, report); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			printCalibration(cmd.OutOrStdout(), report, cfg.Qualification.Metrics)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Quiz responses (JSON array or JSON Lines)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the calibration report to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the calibration report as JSON")
	return cmd
}

func loadQuizResponses(path string) ([]quality.QuizResponse, error) {
	raw, err := fileutil.ReadRecords(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz responses: %w", err)
	}
	out := make([]quality.QuizResponse, 0, len(raw))
	for i, msg := range raw {
		var resp quality.QuizResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "decode quiz response", fmt.Sprintf("record %d", i), err)
		}
		out = append(out, resp)
	}
	return out, nil
}

func qualificationCriteria(cfg *config.Config) quality.Criteria {
	thresholds := make(map[string]float64, len(cfg.Qualification.Metrics))
	for _, metric := range cfg.Qualification.Metrics {
		thresholds[metric] = cfg.QualificationThreshold(metric)
	}
	return quality.Criteria{
		Metrics:    cfg.Qualification.Metrics,
		Thresholds: thresholds,
		Baseline:   cfg.Bonus.Baseline,
	}
}

func printCalibration(out io.Writer, report quality.CalibrationReport, metrics []string) {
	fmt.Fprintf(out, "%d of %d workers qualified on %s\n", report.Qualified, len(report.Workers), strings.Join(metrics, ", "))
	rows := make([][]string, 0, len(report.Workers))
	for _, w := range report.Workers {
		rows = append(rows, []string{
			w.WorkerID,
			formatFloat(w.Accuracy),
			formatFloat(w.Precision),
			formatFloat(w.Recall),
			formatFloat(w.F1),
			fmt.Sprint(w.Score),
			yesNo(w.Qualified),
			fmt.Sprint(w.BonusUnits),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Worker", "Accuracy", "Precision", "Recall", "F1", "Score", "Qualified", "Bonus units"},
		rows,
		rightAligned(8),
	))

	types := make([]string, 0, len(report.Types))
	for name := range report.Types {
		types = append(types, name)
	}
	sort.Strings(types)
	typeRows := make([][]string, 0, len(types))
	for _, name := range types {
		m := report.Types[name]
		typeRows = append(typeRows, []string{
			name,
			fmt.Sprint(len(m.Questions)),
			formatFloat(m.Accuracy),
			formatFloat(m.Precision),
			formatFloat(m.Recall),
			formatFloat(m.F1),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Question type", "Questions", "Accuracy", "Precision", "Recall", "F1"},
		typeRows,
		rightAligned(6),
	))
}
