package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/agreement"
	"ckcrowd/internal/campaign"
	"ckcrowd/internal/dataset"
	"ckcrowd/internal/logging"
	"ckcrowd/internal/quality"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

type artifact struct {
	name    campaign.Artifact
	payload any
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, kind stage.Kind, runID string, in Input) (Summary, error) {
	if err := r.cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if len(in.Resolutions) > 0 && kind != stage.Adjudicate {
		return Summary{}, services.Wrap(services.ErrValidation, string(kind), "run",
			"resolutions are only accepted by the adjudicate stage", nil)
	}
	if err := r.store.RequireUpstream(kind); err != nil {
		return Summary{}, err
	}
	upstream, err := r.upstreamForward(kind)
	if err != nil {
		return Summary{}, err
	}

	def := kind.Definition()
	settings := r.cfg.Stage(kind)

	entries, report, err := r.ingest(logger, def, upstream, in)
	if err != nil {
		return Summary{}, err
	}
	subs := submission.Submissions(entries)

	tasks, err := aggregate.Aggregate(ctx, subs, aggregate.Options{
		Stage:         kind,
		Grouping:      r.cfg.Grouping(kind),
		Threshold:     settings.Threshold,
		NoneThreshold: settings.NoneThreshold,
		Workers:       r.cfg.Aggregation.Workers,
		Canonicalizer: r.canon,
	})
	if err != nil {
		return Summary{}, err
	}
	if len(in.Resolutions) > 0 {
		if tasks, err = adjudication.Apply(tasks, in.Resolutions, settings.Threshold); err != nil {
			return Summary{}, err
		}
		logger.Info("resolutions applied", logging.Int("resolutions", len(in.Resolutions)))
	}

	forward := aggregate.Forward(tasks, settings.Threshold)
	yield := aggregate.ComputeYield(tasks, settings.Threshold)

	grades := quality.GradesFrom(upstream)
	grades.Add(in.Grades)
	workers, err := quality.Score(ctx, subs, grades, quality.Options{Stage: kind, Workers: r.cfg.Aggregation.Workers})
	if err != nil {
		return Summary{}, err
	}
	workers.Records = quality.Rank(workers.Records)

	summary := Summary{
		Stage:             kind,
		RunID:             runID,
		Input:             inputLabel(in),
		Records:           report.Total,
		Accepted:          report.Accepted,
		Skipped:           len(report.Skipped),
		Yield:             yield,
		YieldRate:         yield.Rate(),
		Forwarded:         len(forward),
		Workers:           workers.Workers,
		AnnotationQuality: workers.AnnotationQuality,
	}

	artifacts := []artifact{
		{campaign.ArtifactSubmissions, subs},
		{campaign.ArtifactSkipped, report},
		{campaign.ArtifactAggregated, tasks},
	}

	if def.Selection() {
		if acc, ok := quality.Accuracy(tasks, grades, settings.Threshold); ok {
			workers.AnnotationAccuracy = &acc
			summary.AnnotationAccuracy = &acc
		}
		agree := r.agreement(logger, tasks, settings.Raters)
		consistent := agree.Consistent(r.cfg.Agreement.Tolerance)
		summary.Agreement = &agree
		summary.AgreementConsistent = &consistent
		artifacts = append(artifacts, artifact{campaign.ArtifactAgreement, agree})
	}
	artifacts = append(artifacts, artifact{campaign.ArtifactWorkers, workers})

	audit := Audit{
		NearDuplicates:    aggregate.NearDuplicates(tasks, r.canon, r.cfg.Audit.Similarity),
		HeadTailConflicts: aggregate.SharedHeadTail(tasks),
	}
	summary.NearDuplicates = len(audit.NearDuplicates)
	summary.HeadTailConflicts = len(audit.HeadTailConflicts)
	artifacts = append(artifacts, artifact{campaign.ArtifactAudit, audit})

	if def.Terminal {
		review := adjudication.Review(tasks, settings.Threshold)
		summary.Disagreements = len(review.Disagreements)
		summary.Resolved = review.Resolved
		if summary.Disagreements > summary.Resolved {
			logging.WarnWithContext(logger, "expert disagreements unresolved", "adjudication_pending",
				logging.Int("disagreements", summary.Disagreements),
				logging.Int("resolved", summary.Resolved),
				logging.String(logging.FieldImpact, "split candidates are decided by vote threshold"),
				logging.String(logging.FieldErrorHint, "ckcrowd adjudicate template, then rerun with --resolutions"),
			)
		}
		data := r.assemble(tasks)
		summary.Examples = data.Stats.Examples
		artifacts = append(artifacts,
			artifact{campaign.ArtifactAdjudication, review},
			artifact{campaign.ArtifactDataset, data},
		)
	}

	// The forward set goes last: its presence marks the stage complete.
	artifacts = append(artifacts, artifact{campaign.ArtifactForward, forward})
	for _, a := range artifacts {
		if err := r.store.Write(kind, a.name, runID, a.payload); err != nil {
			return Summary{}, fmt.Errorf("persist %s: %w", a.name, err)
		}
	}
	return summary, nil
}

func (r *Runner) upstreamForward(kind stage.Kind) ([]aggregate.Task, error) {
	prev, ok := kind.Previous()
	if !ok {
		return nil, nil
	}
	var forward []aggregate.Task
	if _, err := r.store.Read(prev, campaign.ArtifactForward, &forward); err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			return nil, services.Wrap(services.ErrStageOrder, string(kind), "load upstream", err.Error(), nil)
		}
		return nil, err
	}
	return forward, nil
}

func (r *Runner) ingest(logger *slog.Logger, def stage.Definition, upstream []aggregate.Task, in Input) ([]submission.Entry, submission.SkipReport, error) {
	var (
		entries []submission.Entry
		report  submission.SkipReport
	)
	if in.Path != "" {
		var err error
		entries, report, err = submission.LoadFile(in.Path, def)
		if err != nil {
			return nil, report, services.Wrap(services.ErrValidation, string(def.Kind), "load submissions", in.Path, err)
		}
	} else {
		entries, report = submission.Ingest(in.Records, def)
	}

	c := newContract(def.Kind, upstream, r.generationOptions())
	kept := entries[:0]
	for _, e := range entries {
		if reason := c.check(def, e.Submission); reason != "" {
			report.Add(e.Index, e.Submission, reason)
			continue
		}
		kept = append(kept, e)
	}

	for _, skip := range report.Skipped {
		logging.WarnWithContext(logger, "submission skipped", "submission_skipped",
			logging.Int("record", skip.Index),
			logging.String(logging.FieldTaskID, skip.TaskID),
			logging.String("assignment_id", skip.AssignmentID),
			logging.String(logging.FieldWorkerID, skip.WorkerID),
			logging.String("reason", skip.Reason),
			logging.String(logging.FieldImpact, "record excluded from aggregation and worker scores"),
			logging.String(logging.FieldErrorHint, "fix the record in the results file and rerun the stage"),
		)
	}
	return kept, report, nil
}

func (r *Runner) agreement(logger *slog.Logger, tasks []aggregate.Task, raters int) agreement.Report {
	level, err := agreement.ParseLevel(r.cfg.Agreement.Level)
	if err != nil {
		level = agreement.Nominal
	}
	report := agreement.Compute(agreement.FromTasks(tasks, raters), level)
	if report.Excluded > 0 {
		logging.WarnWithContext(logger, "items lack full rating coverage", "incomplete_coverage",
			logging.Int("excluded", report.Excluded),
			logging.Int("raters", raters),
			logging.String(logging.FieldImpact, "excluded items do not count toward agreement"),
			logging.String(logging.FieldErrorHint, "collect the missing assignments or adjust the stage raters setting"),
		)
	}
	if !report.Alpha.Defined() || !report.Kappa.Defined() {
		logging.WarnWithContext(logger, "agreement undefined", "degenerate_agreement",
			logging.Bool("degenerate", report.Degenerate),
			logging.Int("items", report.Items),
			logging.String(logging.FieldImpact, "agreement reported as null"),
		)
	}
	if !report.Consistent(r.cfg.Agreement.Tolerance) {
		logging.WarnWithContext(logger, "agreement statistics diverge", "agreement_divergence",
			logging.String("alpha", report.Alpha.String()),
			logging.String("kappa", report.Kappa.String()),
			logging.Float64("tolerance", r.cfg.Agreement.Tolerance),
			logging.String(logging.FieldImpact, "agreement may be unreliable for this batch"),
			logging.String(logging.FieldErrorHint, "inspect the vote matrix for skewed categories"),
		)
	}
	return report
}

func (r *Runner) assemble(tasks []aggregate.Task) DatasetArtifact {
	settings := r.cfg.Stage(stage.Adjudicate)
	examples := dataset.Assemble(tasks, dataset.AssembleOptions{
		Threshold:     settings.Threshold,
		NoneThreshold: settings.NoneThreshold,
	})
	if examples == nil {
		examples = []dataset.Example{}
	}
	return DatasetArtifact{Examples: examples, Stats: dataset.Summarize(examples)}
}

func (r *Runner) generationOptions() dataset.GenerationOptions {
	return dataset.GenerationOptions{
		MinTurn:       r.cfg.Generation.MinTurn,
		DistinctTurns: r.cfg.Generation.DistinctTurns,
	}
}
