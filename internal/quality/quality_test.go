package quality

import (
	"context"
	"math"
	"reflect"
	"testing"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func graded(id string, q *int) submission.Item {
	return submission.Item{ID: id, Kind: stage.ItemFact, Head: "h" + id, Relation: "IsA", Tail: "t", Quality: q}
}

func TestScoreProposalStage(t *testing.T) {
	subs := []submission.Submission{
		{TaskID: "t1", AssignmentID: "a1", WorkerID: "A", ElapsedTime: 10, EffectiveElapsedTime: 8, Items: []submission.Item{
			graded("1", intPtr(1)),
			graded("2", intPtr(-2)),
			graded("3", nil),
		}},
		{TaskID: "t1", AssignmentID: "a2", WorkerID: "B", ElapsedTime: 20, EffectiveElapsedTime: 20, Items: []submission.Item{
			graded("1", nil),
		}},
	}
	report, err := Score(context.Background(), subs, nil, Options{Stage: stage.Annotate, Workers: 2})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	byID := map[string]Record{}
	for _, rec := range report.Records {
		byID[rec.WorkerID] = rec
	}
	a := byID["A"]
	if a.Items != 3 || a.Reviewed != 2 || a.Points != -1 {
		t.Fatalf("unexpected record for A: %+v", a)
	}
	if a.Ratio() != -0.5 || a.Quality != -0.5 {
		t.Fatalf("ratio = %v quality = %v, want -0.5", a.Ratio(), a.Quality)
	}
	if BonusUnits(a.Contributions(false), 1) != 2 {
		t.Fatalf("bonus units = %d, want 2", BonusUnits(a.Contributions(false), 1))
	}
	if !reflect.DeepEqual(a.PointsHistogram, map[int]int{1: 1, -2: 1}) {
		t.Fatalf("unexpected histogram %v", a.PointsHistogram)
	}

	b := byID["B"]
	if b.Reviewed != 0 || b.Ratio() != 0 || math.IsNaN(b.Ratio()) {
		t.Fatalf("ungraded worker must have ratio 0, got %+v", b)
	}
	if report.Records[0].WorkerID != "B" {
		t.Fatalf("B (0) must rank above A (-0.5), got %s first", report.Records[0].WorkerID)
	}
	if report.AnnotationQuality != -0.5 || report.Reviewed != 2 {
		t.Fatalf("unexpected report totals %+v", report)
	}
	if report.MeanElapsed != 15 || report.MinElapsed != 10 || report.MaxElapsed != 20 {
		t.Fatalf("unexpected timing %+v", report)
	}
}

func TestScoreSelectionStageSignsGrades(t *testing.T) {
	grades := Grades{
		{TaskID: "t1", ItemID: "good"}: 2,
		{TaskID: "t1", ItemID: "bad"}:  -1,
	}
	candidate := func(id string, selected bool) submission.Item {
		it := graded(id, nil)
		it.Selected = boolPtr(selected)
		return it
	}
	subs := []submission.Submission{
		// Right on both: +2 and +1.
		{TaskID: "t1", AssignmentID: "a1", WorkerID: "right", Items: []submission.Item{candidate("good", true), candidate("bad", false), candidate("ungraded", true)}},
		// Wrong on both: -2 and -1.
		{TaskID: "t1", AssignmentID: "a2", WorkerID: "wrong", Items: []submission.Item{candidate("good", false), candidate("bad", true)},
			NewItems: []submission.Item{graded("n1", nil), graded("n2", nil)}},
	}
	report, err := Score(context.Background(), subs, grades, Options{Stage: stage.Validate})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	right, wrong := report.Records[0], report.Records[1]
	if right.WorkerID != "right" || right.Points != 3 || right.Reviewed != 2 || right.Quality != 1.5 {
		t.Fatalf("unexpected record %+v", right)
	}
	if wrong.Points != -3 || wrong.Quality != -1.5 {
		t.Fatalf("unexpected record %+v", wrong)
	}
	if wrong.Contributions(true) != 2 {
		t.Fatalf("selection contributions are new items, got %d", wrong.Contributions(true))
	}
	if report.AnnotationQuality != 0 {
		t.Fatalf("annotation quality = %v", report.AnnotationQuality)
	}
	if report.QualityDistribution[2] != 1 || report.QualityDistribution[-2] != 1 {
		t.Fatalf("unexpected distribution %v", report.QualityDistribution)
	}
}

func TestScoreIsIndependentOfParallelism(t *testing.T) {
	var subs []submission.Submission
	for i := 0; i < 40; i++ {
		subs = append(subs, submission.Submission{
			TaskID:       "t",
			AssignmentID: string(rune('A' + i)),
			WorkerID:     string(rune('a' + i%7)),
			ElapsedTime:  float64(i),
			Items:        []submission.Item{graded("x", intPtr(i%5-2))},
		})
	}
	serial, err := Score(context.Background(), subs, nil, Options{Stage: stage.Annotate, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := Score(context.Background(), subs, nil, Options{Stage: stage.Annotate, Workers: 16})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatal("report depends on parallelism")
	}
}

func TestRankBreaksTiesByWorkerID(t *testing.T) {
	in := []Record{
		{WorkerID: "c", Points: 1, Reviewed: 1},
		{WorkerID: "b", Points: 1, Reviewed: 1},
		{WorkerID: "a", Points: 0, Reviewed: 0},
		{WorkerID: "d", Points: 2, Reviewed: 1},
	}
	got := Rank(in)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.WorkerID)
	}
	if !reflect.DeepEqual(ids, []string{"d", "b", "c", "a"}) {
		t.Fatalf("unexpected order %v", ids)
	}
	if in[0].WorkerID != "c" {
		t.Fatal("Rank must not reorder its input")
	}
}

func TestAccuracy(t *testing.T) {
	tasks := []aggregate.Task{{
		TaskID: "t1",
		Items: []aggregate.Item{
			{Item: submission.Item{ID: "good"}, Votes: 2},
			{Item: submission.Item{ID: "bad"}, Votes: 2},
			{Item: submission.Item{ID: "missed"}, Votes: 1},
			{Item: submission.Item{ID: "dropped"}, Votes: 0},
			{Item: submission.Item{ID: "ungraded"}, Votes: 3},
		},
	}}
	grades := Grades{
		{TaskID: "t1", ItemID: "good"}:    1,
		{TaskID: "t1", ItemID: "bad"}:     -1,
		{TaskID: "t1", ItemID: "missed"}:  2,
		{TaskID: "t1", ItemID: "dropped"}: -2,
	}
	// A correctly rejected negative candidate still does not count as correct.
	got, ok := Accuracy(tasks, grades, 2)
	if !ok || got != 0.25 {
		t.Fatalf("accuracy = %v, %v", got, ok)
	}
	if _, ok := Accuracy(tasks, nil, 2); ok {
		t.Fatal("accuracy without grades must be undefined")
	}
}

func TestGradesFrom(t *testing.T) {
	tasks := []aggregate.Task{{
		TaskID: "t1",
		Items: []aggregate.Item{
			{Item: submission.Item{ID: "item-1", Quality: intPtr(2)}, Sources: []string{"0", "3"}},
			{Item: submission.Item{ID: "item-2"}},
		},
		NewItems: []aggregate.Item{{Item: submission.Item{ID: "new-3", Quality: intPtr(-1)}}},
	}}
	grades := GradesFrom(tasks)
	want := Grades{
		{TaskID: "t1", ItemID: "item-1"}: 2,
		{TaskID: "t1", ItemID: "0"}:      2,
		{TaskID: "t1", ItemID: "3"}:      2,
		{TaskID: "t1", ItemID: "new-3"}:  -1,
	}
	if !reflect.DeepEqual(grades, want) {
		t.Fatalf("unexpected grades %v", grades)
	}
	grades.Add([]Grade{{TaskID: "t1", ItemID: "item-2", Quality: 1}})
	if q, ok := grades.Lookup("t1", submission.Item{ID: "item-2"}); !ok || q != 1 {
		t.Fatalf("lookup after Add = %d, %v", q, ok)
	}
	if q, _ := grades.Lookup("t1", submission.Item{ID: "item-2", Quality: intPtr(-2)}); q != -2 {
		t.Fatal("a grade on the item itself takes precedence")
	}
}

func TestBonus(t *testing.T) {
	tests := []struct {
		contributions, baseline int
		rate                    float64
		units                   int
		amount                  float64
	}{
		{3, 1, 0.1, 2, 0.2},
		{1, 1, 0.1, 0, 0},
		{0, 1, 0.1, 0, 0},
		{7, 0, 0.15, 7, 1.05},
	}
	for _, tc := range tests {
		units := BonusUnits(tc.contributions, tc.baseline)
		if units != tc.units {
			t.Errorf("BonusUnits(%d, %d) = %d, want %d", tc.contributions, tc.baseline, units, tc.units)
		}
		if got := BonusAmount(units, tc.rate); got != tc.amount {
			t.Errorf("BonusAmount(%d, %v) = %v, want %v", units, tc.rate, got, tc.amount)
		}
	}
}

func TestMergeStages(t *testing.T) {
	history := MergeStages(map[stage.Kind][]Record{
		stage.Annotate: {{WorkerID: "w2", Points: 2, Reviewed: 2}, {WorkerID: "w1", Points: -1, Reviewed: 1}},
		stage.Validate: {{WorkerID: "w2", Points: 1, Reviewed: 2}},
	})
	if len(history) != 2 || history[0].WorkerID != "w1" {
		t.Fatalf("unexpected history %+v", history)
	}
	w2 := history[1]
	if len(w2.Stages) != 2 || w2.Points != 3 || w2.Reviewed != 4 || w2.Quality != 0.75 {
		t.Fatalf("unexpected merge %+v", w2)
	}
}
