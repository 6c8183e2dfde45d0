package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/campaign"
	"ckcrowd/internal/canonical"
	"ckcrowd/internal/config"
	"ckcrowd/internal/logging"
	"ckcrowd/internal/notifications"
	"ckcrowd/internal/quality"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Runner executes stages against one campaign store.
type Runner struct {
	cfg    *config.Config
	store  *campaign.Store
	logger *slog.Logger
	canon  *canonical.Canonicalizer
	notify notifications.Service
	now    func() time.Time
}

// NewRunner wires a runner. A nil logger discards output.
func NewRunner(cfg *config.Config, store *campaign.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		canon: canonical.New(canonical.Options{
			ExcludeStopwords: cfg.Canonical.ExcludeStopwords,
			Lemmatize:        cfg.Canonical.Lemmatize,
		}),
		notify: notifications.NewService(cfg),
		now:    time.Now,
	}
}

// SetNotifier replaces the operator notification service.
func (r *Runner) SetNotifier(svc notifications.Service) {
	if svc != nil {
		r.notify = svc
	}
}

// Input is the material of one stage run.
type Input struct {
	// Path is a JSON array or JSON Lines results file. Records is used when
	// Path is empty.
	Path    string
	Records []submission.Submission
	// Resolutions override expert decisions. Only the adjudicate stage
	// accepts them.
	Resolutions []adjudication.Resolution
	// Grades add reviewer grades to those carried by upstream items.
	Grades []quality.Grade
}

// RunStage executes kind end to end and returns the persisted summary.
func (r *Runner) RunStage(ctx context.Context, kind stage.Kind, in Input) (Summary, error) {
	if !kind.Valid() {
		return Summary{}, services.Wrap(services.ErrValidation, string(kind), "run", "unknown stage", nil)
	}
	runID := campaign.NewRunID()
	ctx = services.WithStage(ctx, string(kind))
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	settings := r.cfg.Stage(kind)
	started := r.now()
	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", inputLabel(in)),
		logging.Int("threshold", settings.Threshold),
		logging.Int("raters", settings.Raters),
		logging.Int("none_threshold", settings.NoneThreshold),
		logging.String("grouping", string(r.cfg.Grouping(kind))),
	)

	summary, err := r.execute(ctx, logger, kind, runID, in)
	if err != nil {
		return Summary{}, r.handleFailure(ctx, logger, kind, err)
	}
	summary.StartedAt = started.UTC()
	summary.DurationSeconds = r.now().Sub(started).Seconds()
	if err := r.store.Write(kind, campaign.ArtifactSummary, runID, summary); err != nil {
		return Summary{}, r.handleFailure(ctx, logger, kind, fmt.Errorf("persist summary: %w", err))
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("tasks", summary.Yield.Tasks),
		logging.Int("accepted_items", summary.Yield.AcceptedItems),
		logging.Int("forwarded_tasks", summary.Forwarded),
		logging.Float64("yield_rate", summary.YieldRate),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("stage_duration", r.now().Sub(started)),
	}
	if summary.Agreement != nil {
		attrs = append(attrs,
			logging.Any("fleiss_kappa", summary.Agreement.Kappa),
			logging.Any("krippendorff_alpha", summary.Agreement.Alpha),
		)
	}
	logger.Info("stage completed", logging.Args(attrs...)...)
	r.publish(ctx, logger, notifications.EventStageCompleted, notifications.Payload{
		"stage":     kind.Label(),
		"accepted":  summary.Yield.AcceptedItems,
		"items":     summary.Yield.Items,
		"forwarded": summary.Forwarded,
		"skipped":   summary.Skipped,
	})
	if summary.Disagreements > summary.Resolved {
		r.publish(ctx, logger, notifications.EventAdjudicationPending, notifications.Payload{
			"disagreements": summary.Disagreements - summary.Resolved,
		})
	}
	return summary, nil
}

// publish sends an operator notification. Delivery problems are logged and
// never fail the stage.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if r.notify == nil {
		return
	}
	if err := r.notify.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failure",
			logging.String("notification_event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator was not notified"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (r *Runner) handleFailure(ctx context.Context, logger *slog.Logger, kind stage.Kind, stageErr error) error {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", kind)
	}
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_kind", services.Classify(stageErr)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)
	r.publish(ctx, logger, notifications.EventStageFailed, notifications.Payload{
		"stage": kind.Label(),
		"error": message,
	})
	return stageErr
}

func failureHint(err error) string {
	switch services.Classify(err) {
	case "stage_order":
		return "run the upstream stage first; see ckcrowd status"
	case "duplicate_submission":
		return "remove the repeated assignment from the results file"
	case "threshold_misconfiguration":
		return "fix the stage thresholds in the config file"
	case "schema":
		return "the artifact was written by another version or edited by hand; rerun its stage"
	default:
		return "check logs for details"
	}
}

func inputLabel(in Input) string {
	if in.Path != "" {
		return in.Path
	}
	return fmt.Sprintf("%d in-memory records", len(in.Records))
}
