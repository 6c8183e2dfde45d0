package adjudication

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

func rated(id string, values ...int) aggregate.Item {
	it := aggregate.Item{Item: submission.Item{ID: id, Kind: stage.ItemAlternative, Text: "alt " + id}}
	for i, v := range values {
		it.Ratings = append(it.Ratings, aggregate.Rating{WorkerID: string(rune('a' + i)), Value: v})
		it.Votes += v
	}
	return it
}

func expertTasks() []aggregate.Task {
	return []aggregate.Task{
		{GroupKey: "t1", TaskID: "t1", Items: []aggregate.Item{rated("item-1", 1, 1), rated("item-2", 1, 0)}},
		{GroupKey: "t2", TaskID: "t2", Items: []aggregate.Item{rated("item-1", 0, 0), rated("item-2", 0, 1)}},
	}
}

func TestReview(t *testing.T) {
	s := Review(expertTasks(), 1)
	if s.Candidates != 4 || s.Unanimous != 2 || s.Accepted != 3 || s.Rejected != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if len(s.Disagreements) != 2 || s.Disagreements[0].TaskID != "t1" || s.Disagreements[1].ItemID != "item-2" {
		t.Fatalf("unexpected disagreements %+v", s.Disagreements)
	}
	if Unanimous(aggregate.Item{}) {
		t.Fatal("unrated items are not unanimous")
	}
}

func TestParseResolutions(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		count   int
		wantErr bool
	}{
		{"valid", "resolutions:\n  - task_id: t1\n    item_id: item-2\n    decision: Reject\n    note: off topic\n", 1, false},
		{"empty", "", 0, false},
		{"unknown decision", "resolutions:\n  - task_id: t1\n    item_id: item-2\n    decision: maybe\n", 0, true},
		{"missing item", "resolutions:\n  - task_id: t1\n    decision: accept\n", 0, true},
		{"unknown field", "resolutions:\n  - task_id: t1\n    item_id: x\n    decision: accept\n    votes: 3\n", 0, true},
		{"duplicate", "resolutions:\n  - {task_id: t1, item_id: x, decision: accept}\n  - {task_id: t1, item_id: x, decision: reject}\n", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseResolutions([]byte(tc.yaml))
			if tc.wantErr {
				if !errors.Is(err, services.ErrSchema) {
					t.Fatalf("expected schema error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResolutions: %v", err)
			}
			if len(got) != tc.count {
				t.Fatalf("got %d resolutions, want %d", len(got), tc.count)
			}
			if tc.count == 1 && got[0].Decision != aggregate.DecisionReject {
				t.Fatalf("decision = %q", got[0].Decision)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tasks := expertTasks()
	resolved, err := Apply(tasks, []Resolution{
		{TaskID: "t1", ItemID: "item-2", Decision: aggregate.DecisionReject},
		{TaskID: "t2", ItemID: "item-2", Decision: aggregate.DecisionAccept},
	}, 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if resolved[0].Accepted != 1 || resolved[1].Accepted != 1 {
		t.Fatalf("accepted counts = %d, %d", resolved[0].Accepted, resolved[1].Accepted)
	}
	if resolved[1].Items[1].Votes != 1 {
		t.Fatal("resolutions must not rewrite vote counts")
	}
	if tasks[0].Items[1].Decision != "" {
		t.Fatal("Apply must not modify its input")
	}
	if s := Review(resolved, 2); s.Resolved != 2 {
		t.Fatalf("resolved = %d", s.Resolved)
	}

	_, err = Apply(tasks, []Resolution{{TaskID: "t9", ItemID: "item-1", Decision: aggregate.DecisionAccept}}, 2)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	s := Review(expertTasks(), 1)
	var buf bytes.Buffer
	if err := WriteTemplate(&buf, s.Disagreements); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if !strings.Contains(buf.String(), "1 of 2 experts accepted") {
		t.Fatalf("template lacks notes:\n%s", buf.String())
	}
	path := filepath.Join(t.TempDir(), "resolutions.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadResolutions(path)
	if err != nil {
		t.Fatalf("LoadResolutions: %v", err)
	}
	if len(got) != 2 || got[0].Decision != aggregate.DecisionAccept {
		t.Fatalf("unexpected round trip %+v", got)
	}
}
