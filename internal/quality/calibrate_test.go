package quality

import (
	"testing"

	"ckcrowd/internal/submission"
)

func question(qtype string, pairs ...[2]int) Question {
	q := Question{Type: qtype}
	for _, p := range pairs {
		q.Options = append(q.Options, Option{Label: p[0], Answer: p[1]})
	}
	return q
}

func TestCalibrate(t *testing.T) {
	perfect := QuizResponse{
		WorkerID: "perfect",
		Questions: []Question{
			question("dialogue", [2]int{1, 1}, [2]int{0, 0}),
			question("summary", [2]int{0, 0}, [2]int{1, 1}),
		},
		Facts: make([]submission.Item, 3),
	}
	sloppy := QuizResponse{
		WorkerID: "sloppy",
		Questions: []Question{
			// tp=1 fp=1: precision 0.5, recall 1
			question("dialogue", [2]int{1, 1}, [2]int{0, 1}),
			// tp=0 fn=1: everything 0 except accuracy
			question("summary", [2]int{0, 0}, [2]int{1, 0}),
		},
	}
	report := Calibrate([]QuizResponse{perfect, sloppy}, Criteria{
		Metrics:    []string{"precision"},
		Thresholds: map[string]float64{"precision": 0.8},
		Baseline:   1,
	})
	if len(report.Workers) != 2 || report.Qualified != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	p := report.Workers[0]
	if !p.Qualified || p.Score != 100 || p.BonusUnits != 2 || p.F1 != 1 {
		t.Fatalf("unexpected perfect worker %+v", p)
	}
	s := report.Workers[1]
	if s.Qualified {
		t.Fatal("sloppy worker must not qualify on precision")
	}
	if got := s.Types["dialogue"].Precision; got != 0.5 {
		t.Fatalf("dialogue precision = %v", got)
	}
	if got := s.Types["summary"]; got.Precision != 0 || got.Recall != 0 || got.Accuracy != 0.5 {
		t.Fatalf("summary metrics = %+v", got)
	}
	// Mean over types: (0.5 + 0) / 2.
	if s.Precision != 0.25 {
		t.Fatalf("mean precision = %v", s.Precision)
	}
	if s.BonusUnits != 0 {
		t.Fatalf("no facts means no bonus, got %d", s.BonusUnits)
	}
	dialogue := report.Types["dialogue"]
	if len(dialogue.Questions) != 1 || dialogue.Accuracy != 0.75 {
		t.Fatalf("pooled dialogue metrics = %+v", dialogue)
	}
}

func TestScoreZeroDivision(t *testing.T) {
	m := score([]pair{{0, 0}, {0, 0}})
	if m.Accuracy != 1 || m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if (score(nil) != Metrics{}) {
		t.Fatal("empty input must score zero")
	}
}

func TestMarketplaceScoreKeepsHundredths(t *testing.T) {
	tests := []struct {
		f1   float64
		want int
	}{
		{0, 0},
		{0.29, 29},
		{0.57, 57},
		{0.67, 67},
		{1, 100},
	}
	for _, tc := range tests {
		if got := marketplaceScore(tc.f1); got != tc.want {
			t.Errorf("marketplaceScore(%v) = %d, want %d", tc.f1, got, tc.want)
		}
	}
}
