package agreement

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/submission"
)

func matrix(rows ...[]int) VoteMatrix {
	return VoteMatrix{Raters: len(rows[0]), Rows: rows}
}

func near(a Statistic, want, tol float64) bool {
	return a.Defined() && math.Abs(a.Float()-want) <= tol
}

func TestFleissKappaWikipediaExample(t *testing.T) {
	counts := [][]int{
		{0, 0, 0, 0, 14},
		{0, 2, 6, 4, 2},
		{0, 0, 3, 5, 6},
		{0, 3, 9, 2, 0},
		{2, 2, 8, 1, 1},
		{7, 7, 0, 0, 0},
		{3, 2, 6, 3, 0},
		{2, 5, 3, 2, 2},
		{6, 5, 2, 1, 0},
		{0, 2, 2, 3, 7},
	}
	m := VoteMatrix{Raters: 14}
	for _, c := range counts {
		var row []int
		for category, n := range c {
			for i := 0; i < n; i++ {
				row = append(row, category+1)
			}
		}
		m.Rows = append(m.Rows, row)
	}
	if got := FleissKappa(m); !near(got, 0.210, 0.001) {
		t.Fatalf("kappa = %v, want 0.210", got)
	}
}

func TestPerfectAgreement(t *testing.T) {
	m := matrix([]int{1, 1, 1}, []int{0, 0, 0}, []int{1, 1, 1})
	if got := FleissKappa(m); !near(got, 1, 1e-9) {
		t.Fatalf("kappa = %v, want 1", got)
	}
	for _, level := range []Level{Nominal, Ordinal, Interval, Ratio} {
		if got := KrippendorffAlpha(m, level); !near(got, 1, 1e-9) {
			t.Fatalf("alpha(%s) = %v, want 1", level, got)
		}
	}
}

func TestDegenerateMatrixIsUndefined(t *testing.T) {
	m := matrix([]int{1, 1}, []int{1, 1}, []int{1, 1})
	r := Compute(m, Nominal)
	if r.Kappa.Defined() || r.Alpha.Defined() {
		t.Fatalf("expected undefined statistics, got %v / %v", r.Alpha, r.Kappa)
	}
	if !r.Degenerate || !r.Consistent(0.1) {
		t.Fatalf("unexpected report %+v", r)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kappa.Defined() || back.Alpha.Defined() {
		t.Fatalf("null must decode as undefined, got %s", data)
	}
}

func TestEmptyMatrix(t *testing.T) {
	r := Compute(VoteMatrix{Raters: 3}, Nominal)
	if r.Kappa.Defined() || r.Alpha.Defined() || r.Degenerate || r.Items != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestBinaryHandComputed(t *testing.T) {
	m := matrix([]int{0, 0}, []int{1, 1}, []int{0, 1})
	if got := FleissKappa(m); !near(got, 1.0/3, 1e-9) {
		t.Fatalf("kappa = %v", got)
	}
	// With two categories every level reduces to the nominal coefficient.
	for _, level := range []Level{Nominal, Ordinal, Interval, Ratio} {
		if got := KrippendorffAlpha(m, level); !near(got, 4.0/9, 1e-9) {
			t.Fatalf("alpha(%s) = %v, want 0.444", level, got)
		}
	}
}

func TestAlphaLevelsDiffer(t *testing.T) {
	m := matrix([]int{1, 2}, []int{2, 3}, []int{1, 1})
	if got := KrippendorffAlpha(m, Nominal); !near(got, 1-20.0/22, 1e-9) {
		t.Fatalf("nominal alpha = %v", got)
	}
	if got := KrippendorffAlpha(m, Interval); !near(got, 0.5, 1e-9) {
		t.Fatalf("interval alpha = %v", got)
	}
}

func TestRandomRatingsKappaNearZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	m := VoteMatrix{Raters: 3}
	for i := 0; i < 5000; i++ {
		m.Rows = append(m.Rows, []int{rng.IntN(2), rng.IntN(2), rng.IntN(2)})
	}
	r := Compute(m, Nominal)
	if !near(r.Kappa, 0, 0.05) || !near(r.Alpha, 0, 0.05) {
		t.Fatalf("expected near-zero agreement, got alpha=%v kappa=%v", r.Alpha, r.Kappa)
	}
	if !r.Consistent(0.1) {
		t.Fatal("alpha and kappa should agree on random data")
	}
}

func TestConsistent(t *testing.T) {
	tests := []struct {
		name  string
		alpha Statistic
		kappa Statistic
		want  bool
	}{
		{"close", 0.61, 0.6, true},
		{"far", 0.8, 0.4, false},
		{"opposite signs", 0.3, -0.3, false},
		{"both near zero", 0.01, -0.02, true},
		{"one undefined", 0.5, Undefined(), false},
		{"both undefined", Undefined(), Undefined(), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Report{Alpha: tc.alpha, Kappa: tc.kappa}
			if got := r.Consistent(0.1); got != tc.want {
				t.Fatalf("Consistent = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromTasksExcludesPartialCoverage(t *testing.T) {
	ratings := func(values ...int) []aggregate.Rating {
		out := make([]aggregate.Rating, len(values))
		for i, v := range values {
			out[i] = aggregate.Rating{WorkerID: string(rune('a' + i)), Value: v}
		}
		return out
	}
	tasks := []aggregate.Task{{
		GroupKey: "t1",
		Items: []aggregate.Item{
			{Item: submission.Item{ID: "k1"}, Ratings: ratings(1, 1, 0)},
			{Item: submission.Item{ID: "k2"}, Ratings: ratings(1, 0)},
			{Item: submission.Item{ID: "k3"}, Ratings: ratings(0, 0, 0, 1)},
			{Item: submission.Item{ID: "k4"}, Ratings: ratings(0, 0, 0)},
		},
	}}
	m := FromTasks(tasks, 3)
	if m.N() != 2 || m.Excluded != 2 {
		t.Fatalf("covered=%d excluded=%d", m.N(), m.Excluded)
	}
	if m.Items[0] != "t1/k1" || m.Rows[0][2] != 0 {
		t.Fatalf("unexpected matrix %+v", m)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel(" Ordinal "); err != nil || l != Ordinal {
		t.Fatalf("ParseLevel = %q, %v", l, err)
	}
	if _, err := ParseLevel("cardinal"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestStatisticRound(t *testing.T) {
	if got := Statistic(0.4444).Round(2); got != 0.44 {
		t.Fatalf("Round = %v", got)
	}
	if Undefined().Round(2).Defined() {
		t.Fatal("rounding must keep undefined values undefined")
	}
}
