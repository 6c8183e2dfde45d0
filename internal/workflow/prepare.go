package workflow

import (
	"context"
	"errors"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/campaign"
	"ckcrowd/internal/dataset"
	"ckcrowd/internal/logging"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

// PrepareInput builds the task batch kind will show workers, from the
// previous stage's forward set. Annotate tasks come from the dialogue corpus
// and cannot be prepared here.
func (r *Runner) PrepareInput(kind stage.Kind) ([]dataset.InputTask, error) {
	if _, ok := kind.Previous(); !ok {
		return nil, services.Wrap(services.ErrValidation, string(kind), "prepare input",
			"the first stage reads dialogues directly", nil)
	}
	if err := r.store.RequireUpstream(kind); err != nil {
		return nil, err
	}
	upstream, err := r.upstreamForward(kind)
	if err != nil {
		return nil, err
	}
	var tasks []dataset.InputTask
	if kind == stage.Generate {
		tasks = dataset.PrepareGeneration(upstream, r.generationOptions())
	} else {
		tasks = dataset.PrepareCandidates(kind, upstream)
	}
	if tasks == nil {
		tasks = []dataset.InputTask{}
	}
	r.logger.Info("stage input prepared",
		logging.String(logging.FieldStage, string(kind)),
		logging.Int("upstream_tasks", len(upstream)),
		logging.Int("tasks", len(tasks)),
	)
	return tasks, nil
}

// BuildDataset reassembles the dataset from the expert stage's aggregated
// tasks, optionally applying a newer set of resolutions, and replaces the
// dataset artifact.
func (r *Runner) BuildDataset(ctx context.Context, resolutions []adjudication.Resolution) (DatasetArtifact, error) {
	if err := ctx.Err(); err != nil {
		return DatasetArtifact{}, err
	}
	var tasks []aggregate.Task
	env, err := r.store.Read(stage.Adjudicate, campaign.ArtifactAggregated, &tasks)
	if errors.Is(err, campaign.ErrNotFound) {
		return DatasetArtifact{}, services.Wrap(services.ErrStageOrder, string(stage.Adjudicate), "build dataset",
			"the adjudicate stage has not run", nil)
	}
	if err != nil {
		return DatasetArtifact{}, err
	}
	if len(resolutions) > 0 {
		threshold := r.cfg.Stage(stage.Adjudicate).Threshold
		if tasks, err = adjudication.Apply(tasks, resolutions, threshold); err != nil {
			return DatasetArtifact{}, err
		}
	}
	data := r.assemble(tasks)
	if err := r.store.Write(stage.Adjudicate, campaign.ArtifactDataset, env.RunID, data); err != nil {
		return DatasetArtifact{}, err
	}
	r.logger.Info("dataset assembled",
		logging.String(logging.FieldRunID, env.RunID),
		logging.Int("examples", data.Stats.Examples),
		logging.Int("positives", data.Stats.Positives),
		logging.Int("negatives", data.Stats.Negatives),
	)
	return data, nil
}
