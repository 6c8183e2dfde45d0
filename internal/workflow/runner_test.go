package workflow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"ckcrowd/internal/adjudication"
	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/campaign"
	"ckcrowd/internal/dataset"
	"ckcrowd/internal/notifications"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
	"ckcrowd/internal/testsupport"
)

func newTestRunner(t *testing.T, opts ...testsupport.ConfigOption) (*Runner, *campaign.Store, *bytes.Buffer) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewRunner(cfg, store, logger), store, &buf
}

func annotateRecords() []submission.Submission {
	return []submission.Submission{
		testsupport.Submission(stage.Annotate, "d1", "as-a", "A",
			testsupport.AnchoredFact("f1", "boss", "Causes", "alarm clock", 3, 4),
			testsupport.AnchoredFact("f2", "missed the bus", "Causes", "boss", 1, 3),
		),
		testsupport.Submission(stage.Annotate, "d1", "as-b", "B",
			testsupport.AnchoredFact("b1", " boss ", "Causes", "alarm clock", 3, 4),
		),
	}
}

// selections answers a prepared selection task. Candidates listed in picks
// are selected, the rest are not.
func selections(kind stage.Kind, in dataset.InputTask, assignmentID, workerID string, picks ...string) submission.Submission {
	chosen := make(map[string]bool, len(picks))
	for _, id := range picks {
		chosen[id] = true
	}
	sub := submission.Submission{
		Stage:        kind,
		TaskID:       in.TaskID,
		DataID:       in.DataID,
		AssignmentID: assignmentID,
		WorkerID:     workerID,
		Content:      in.Content,
	}
	for _, c := range in.Candidates {
		sub.Items = append(sub.Items, testsupport.Select(c, chosen[c.ID]))
	}
	return sub
}

func generation(in dataset.InputTask, assignmentID, workerID, itemID, text string) submission.Submission {
	ids := make([]string, 0, len(in.Content.Knowledge))
	for _, fact := range in.Content.Knowledge {
		ids = append(ids, fact.ID)
	}
	return submission.Submission{
		Stage:        stage.Generate,
		TaskID:       in.TaskID,
		DataID:       in.DataID,
		AssignmentID: assignmentID,
		WorkerID:     workerID,
		Content:      in.Content,
		Items:        []submission.Item{testsupport.Alternative(itemID, text, ids...)},
	}
}

func mustPrepare(t *testing.T, r *Runner, kind stage.Kind) dataset.InputTask {
	t.Helper()
	tasks, err := r.PrepareInput(kind)
	if err != nil {
		t.Fatalf("PrepareInput(%s): %v", kind, err)
	}
	if len(tasks) != 1 {
		t.Fatalf("PrepareInput(%s) = %d tasks, want 1: %+v", kind, len(tasks), tasks)
	}
	return tasks[0]
}

func mustRun(t *testing.T, r *Runner, kind stage.Kind, in Input) Summary {
	t.Helper()
	summary, err := r.RunStage(context.Background(), kind, in)
	if err != nil {
		t.Fatalf("RunStage(%s): %v", kind, err)
	}
	return summary
}

func TestRunStageFullCampaign(t *testing.T) {
	r, store, logs := newTestRunner(t)
	ctx := context.Background()

	annotated := mustRun(t, r, stage.Annotate, Input{Records: annotateRecords()})
	if annotated.Forwarded != 1 || annotated.Yield.Items != 2 || annotated.Yield.AcceptedItems != 2 {
		t.Fatalf("unexpected annotate summary: %+v", annotated)
	}

	validateTask := mustPrepare(t, r, stage.Validate)
	if validateTask.TaskID != "d1" || len(validateTask.Candidates) != 2 {
		t.Fatalf("unexpected validate input: %+v", validateTask)
	}
	stray := validateTask
	stray.TaskID = "zzz"
	forged := validateTask
	forged.Candidates = append([]submission.Item(nil), validateTask.Candidates...)
	forged.Candidates[0].ID = "f9"
	validated := mustRun(t, r, stage.Validate, Input{Records: []submission.Submission{
		selections(stage.Validate, validateTask, "v-a", "A", "f1", "f2"),
		selections(stage.Validate, validateTask, "v-b", "B", "f1"),
		selections(stage.Validate, validateTask, "v-c", "C", "f1"),
		selections(stage.Validate, stray, "v-d", "D", "f1"),
		selections(stage.Validate, forged, "v-e", "E", "f9"),
	}})
	if validated.Skipped != 2 || validated.Accepted != 3 {
		t.Fatalf("expected 2 contract skips, got %+v", validated)
	}
	if validated.Yield.AcceptedItems != 1 || validated.Agreement == nil || validated.Agreement.Items != 2 {
		t.Fatalf("unexpected validate summary: %+v", validated)
	}
	if !strings.Contains(logs.String(), `"event_type":"submission_skipped"`) {
		t.Fatalf("skips were not logged: %s", logs.String())
	}
	if !strings.Contains(logs.String(), `"fleiss_kappa":`) || !strings.Contains(logs.String(), `"krippendorff_alpha":`) {
		t.Fatalf("selection stage completion should log agreement: %s", logs.String())
	}

	generateTask := mustPrepare(t, r, stage.Generate)
	if generateTask.TaskID != "d1-3" || len(generateTask.Content.Knowledge) != 1 || generateTask.Content.Knowledge[0].ID != "d1/f1" {
		t.Fatalf("unexpected generate input: %+v", generateTask)
	}
	if generateTask.Content.FinalTurnPrefix != "B:" {
		t.Fatalf("final turn prefix = %q, want B:", generateTask.Content.FinalTurnPrefix)
	}
	generated := mustRun(t, r, stage.Generate, Input{Records: []submission.Submission{
		generation(generateTask, "g-a", "A", "a-1", "You should get a new job."),
		generation(generateTask, "g-b", "B", "b-1", "You should get a new job."),
		generation(generateTask, "g-c", "C", "c-1", "Maybe take a taxi next time."),
	}})
	if generated.Yield.Items != 2 || generated.Yield.AcceptedItems != 2 {
		t.Fatalf("unexpected generate summary: %+v", generated)
	}

	vgTask := mustPrepare(t, r, stage.ValidateGenerated)
	if len(vgTask.Candidates) != 2 {
		t.Fatalf("unexpected validate_generated input: %+v", vgTask)
	}
	mustRun(t, r, stage.ValidateGenerated, Input{Records: []submission.Submission{
		selections(stage.ValidateGenerated, vgTask, "vg-a", "A", "a-1", "c-1"),
		selections(stage.ValidateGenerated, vgTask, "vg-b", "B", "a-1"),
		selections(stage.ValidateGenerated, vgTask, "vg-c", "C", "a-1"),
	}})

	expertTask := mustPrepare(t, r, stage.Adjudicate)
	if len(expertTask.Candidates) != 1 || expertTask.Candidates[0].ID != "a-1" {
		t.Fatalf("unexpected adjudicate input: %+v", expertTask)
	}
	adjudicated := mustRun(t, r, stage.Adjudicate, Input{
		Records: []submission.Submission{
			selections(stage.Adjudicate, expertTask, "x-1", "E1", "a-1"),
			selections(stage.Adjudicate, expertTask, "x-2", "E2"),
		},
		Resolutions: []adjudication.Resolution{{TaskID: "d1-3", ItemID: "a-1", Decision: aggregate.DecisionAccept}},
	})
	if adjudicated.Disagreements != 1 || adjudicated.Resolved != 1 || adjudicated.Examples != 1 {
		t.Fatalf("unexpected adjudicate summary: %+v", adjudicated)
	}

	var data DatasetArtifact
	if _, err := store.Read(stage.Adjudicate, campaign.ArtifactDataset, &data); err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	if len(data.Examples) != 1 {
		t.Fatalf("expected one example, got %+v", data.Examples)
	}
	ex := data.Examples[0]
	if len(ex.Targets) != 2 {
		t.Fatalf("expected positive plus one negative, got %+v", ex.Targets)
	}
	positive := ex.Positive()
	if positive.Text != "B: You should buy an alarm clock." || len(positive.Knowledge) != 1 {
		t.Fatalf("unexpected positive target: %+v", positive)
	}
	if neg := ex.Targets[1]; neg.Label != 0 || neg.Text != "B: You should get a new job." {
		t.Fatalf("unexpected negative target: %+v", neg)
	}

	statuses, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, st := range statuses {
		if !st.Completed || !st.Ready {
			t.Fatalf("stage %s not complete: %+v", st.Kind, st)
		}
	}

	rebuilt, err := r.BuildDataset(ctx, []adjudication.Resolution{{TaskID: "d1-3", ItemID: "a-1", Decision: aggregate.DecisionReject}})
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	if rebuilt.Stats.Negatives != 0 || rebuilt.Stats.Positives != 1 {
		t.Fatalf("reject resolution not applied: %+v", rebuilt.Stats)
	}
}

func TestRunStageRequiresUpstream(t *testing.T) {
	r, store, logs := newTestRunner(t)
	_, err := r.RunStage(context.Background(), stage.Validate, Input{})
	if !errors.Is(err, services.ErrStageOrder) {
		t.Fatalf("expected stage order error, got %v", err)
	}
	if store.Exists(stage.Validate, campaign.ArtifactForward) {
		t.Fatalf("forward set written for failed run")
	}
	if !strings.Contains(logs.String(), `"event_type":"stage_failure"`) {
		t.Fatalf("failure not logged: %s", logs.String())
	}
	if _, err := r.PrepareInput(stage.Annotate); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error preparing annotate, got %v", err)
	}
}

func TestRunStageDuplicateAssignmentIsFatal(t *testing.T) {
	r, store, _ := newTestRunner(t)
	records := annotateRecords()
	records = append(records, records[0])
	_, err := r.RunStage(context.Background(), stage.Annotate, Input{Records: records})
	if !errors.Is(err, services.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	var dup *aggregate.DuplicateError
	if !errors.As(err, &dup) || dup.FirstIndex != 0 || dup.SecondIndex != 2 {
		t.Fatalf("duplicate context missing: %#v", err)
	}
	if store.Exists(stage.Annotate, campaign.ArtifactForward) {
		t.Fatalf("forward set written for failed run")
	}
}

func TestRunStageRejectsResolutionsOutsideAdjudicate(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_, err := r.RunStage(context.Background(), stage.Annotate, Input{
		Records:     annotateRecords(),
		Resolutions: []adjudication.Resolution{{TaskID: "d1", ItemID: "f1", Decision: aggregate.DecisionAccept}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunStageThresholdMisconfiguration(t *testing.T) {
	r, _, _ := newTestRunner(t)
	settings := r.cfg.Stage(stage.Annotate)
	settings.Threshold = settings.Raters + 1
	r.cfg.Stages[string(stage.Annotate)] = settings

	_, err := r.RunStage(context.Background(), stage.Annotate, Input{Path: "/does/not/exist.jsonl"})
	if !errors.Is(err, services.ErrThresholdMisconfiguration) {
		t.Fatalf("expected threshold misconfiguration before reading input, got %v", err)
	}
}

func TestRunStageReadsResultsFile(t *testing.T) {
	r, store, _ := newTestRunner(t)
	path := testsupport.WriteRecords(t, t.TempDir(), "annotate.jsonl", annotateRecords())
	summary := mustRun(t, r, stage.Annotate, Input{Path: path})
	if summary.Input != path || summary.Records != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	var saved Summary
	env, err := store.Read(stage.Annotate, campaign.ArtifactSummary, &saved)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if env.RunID != summary.RunID || saved.Forwarded != 1 {
		t.Fatalf("persisted summary mismatch: %+v vs %+v", saved, summary)
	}
}

type recordingNotifier struct {
	events []notifications.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.events = append(n.events, event)
	return n.err
}

func TestRunStagePublishesNotifications(t *testing.T) {
	r, _, logs := newTestRunner(t)
	notifier := &recordingNotifier{}
	r.SetNotifier(notifier)

	if _, err := r.RunStage(context.Background(), stage.Validate, Input{}); err == nil {
		t.Fatal("expected validate to fail before annotate")
	}
	mustRun(t, r, stage.Annotate, Input{Records: annotateRecords()})

	want := []notifications.Event{notifications.EventStageFailed, notifications.EventStageCompleted}
	if len(notifier.events) != len(want) {
		t.Fatalf("events = %v, want %v", notifier.events, want)
	}
	for i := range want {
		if notifier.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", notifier.events, want)
		}
	}

	notifier.err = errors.New("ntfy unreachable")
	if _, err := r.RunStage(context.Background(), stage.Generate, Input{}); !errors.Is(err, services.ErrStageOrder) {
		t.Fatalf("expected stage order error despite notifier failure, got %v", err)
	}
	if !strings.Contains(logs.String(), `"event_type":"notification_failure"`) {
		t.Fatalf("notification failure not logged: %s", logs.String())
	}
}
