package quality

import (
	"math"
	"sort"

	"ckcrowd/internal/submission"
)

// Option is one checkbox of a quiz question. Label is the answer key, Answer
// the worker's choice; both are 0 or 1.
type Option struct {
	ID     string `json:"id,omitempty"`
	Label  int    `json:"label"`
	Answer int    `json:"answer"`
}

// Question is one multiple-choice quiz question.
type Question struct {
	ID      string   `json:"id,omitempty"`
	Type    string   `json:"type"`
	Options []Option `json:"options"`
}

// QuizResponse is one worker's qualification quiz.
type QuizResponse struct {
	WorkerID             string     `json:"worker_id"`
	AssignmentID         string     `json:"assignment_id"`
	ElapsedTime          float64    `json:"elapsed_time,omitempty"`
	EffectiveElapsedTime float64    `json:"effective_elapsed_time,omitempty"`
	Questions            []Question `json:"questions"`
	// Facts are the open-ended annotations written at the end of the quiz.
	Facts    []submission.Item `json:"facts,omitempty"`
	Feedback string            `json:"feedback,omitempty"`
}

// Metrics are binary classification scores of answers against labels.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Get returns the metric by name.
func (m Metrics) Get(name string) float64 {
	switch name {
	case "accuracy":
		return m.Accuracy
	case "precision":
		return m.Precision
	case "recall":
		return m.Recall
	case "f1":
		return m.F1
	}
	return 0
}

// TypeMetrics are metrics for one question type, overall and per question.
type TypeMetrics struct {
	Metrics
	Questions []Metrics `json:"questions"`
}

// Calibration is the quiz outcome of one worker.
type Calibration struct {
	WorkerID     string `json:"worker_id"`
	AssignmentID string `json:"assignment_id"`
	Metrics
	Types     map[string]TypeMetrics `json:"types"`
	Qualified bool                   `json:"qualified"`
	// Score is F1 scaled to the marketplace's 0..100 qualification range.
	Score            int               `json:"score"`
	BonusUnits       int               `json:"bonus_units"`
	Facts            []submission.Item `json:"facts,omitempty"`
	Feedback         string            `json:"feedback,omitempty"`
	EffectiveElapsed float64           `json:"effective_elapsed_time"`
}

// CalibrationReport aggregates every worker's quiz.
type CalibrationReport struct {
	Workers   []Calibration          `json:"workers"`
	Types     map[string]TypeMetrics `json:"types"`
	Qualified int                    `json:"qualified"`
}

// Criteria decides who qualifies: every named metric must reach its threshold.
type Criteria struct {
	Metrics    []string
	Thresholds map[string]float64
	// Baseline is the number of free quiz facts before bonus units accrue.
	Baseline int
}

type pair struct{ label, answer int }

// Calibrate grades quiz responses against their answer keys. Per-worker
// metrics are the mean over question types; per-question metrics pool every
// worker's answers to the question at that position.
func Calibrate(responses []QuizResponse, criteria Criteria) CalibrationReport {
	report := CalibrationReport{Types: make(map[string]TypeMetrics)}
	types := questionTypes(responses)
	pooledByType := make(map[string][]pair)
	pooledByQuestion := make(map[string]map[int][]pair)

	for _, resp := range responses {
		cal := Calibration{
			WorkerID:         resp.WorkerID,
			AssignmentID:     resp.AssignmentID,
			Types:            make(map[string]TypeMetrics, len(types)),
			Facts:            resp.Facts,
			Feedback:         resp.Feedback,
			EffectiveElapsed: resp.EffectiveElapsedTime,
			BonusUnits:       BonusUnits(len(resp.Facts), criteria.Baseline),
		}
		var means []Metrics
		for _, qtype := range types {
			var all []pair
			var perQuestion []Metrics
			position := 0
			for _, q := range resp.Questions {
				if q.Type != qtype {
					continue
				}
				pairs := flatten(q)
				all = append(all, pairs...)
				perQuestion = append(perQuestion, score(pairs))
				if pooledByQuestion[qtype] == nil {
					pooledByQuestion[qtype] = make(map[int][]pair)
				}
				pooledByQuestion[qtype][position] = append(pooledByQuestion[qtype][position], pairs...)
				position++
			}
			pooledByType[qtype] = append(pooledByType[qtype], all...)
			tm := TypeMetrics{Metrics: score(all), Questions: perQuestion}
			cal.Types[qtype] = tm
			means = append(means, tm.Metrics)
		}
		cal.Metrics = mean(means)
		cal.Score = marketplaceScore(cal.F1)
		cal.Qualified = qualifies(cal.Metrics, criteria)
		if cal.Qualified {
			report.Qualified++
		}
		report.Workers = append(report.Workers, cal)
	}

	for _, qtype := range types {
		byPos := pooledByQuestion[qtype]
		positions := make([]int, 0, len(byPos))
		for p := range byPos {
			positions = append(positions, p)
		}
		sort.Ints(positions)
		tm := TypeMetrics{Metrics: score(pooledByType[qtype])}
		for _, p := range positions {
			tm.Questions = append(tm.Questions, score(byPos[p]))
		}
		report.Types[qtype] = tm
	}
	return report
}

func questionTypes(responses []QuizResponse) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, resp := range responses {
		for _, q := range resp.Questions {
			if _, ok := seen[q.Type]; ok {
				continue
			}
			seen[q.Type] = struct{}{}
			out = append(out, q.Type)
		}
	}
	sort.Strings(out)
	return out
}

func flatten(q Question) []pair {
	out := make([]pair, 0, len(q.Options))
	for _, opt := range q.Options {
		out = append(out, pair{label: opt.Label, answer: opt.Answer})
	}
	return out
}

// score computes binary metrics with 1 as the positive class. Undefined
// ratios (zero denominators) are 0.
func score(pairs []pair) Metrics {
	if len(pairs) == 0 {
		return Metrics{}
	}
	var tp, fp, fn, correct int
	for _, p := range pairs {
		if p.label == p.answer {
			correct++
		}
		switch {
		case p.answer == 1 && p.label == 1:
			tp++
		case p.answer == 1:
			fp++
		case p.label == 1:
			fn++
		}
	}
	m := Metrics{Accuracy: float64(correct) / float64(len(pairs))}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return Metrics{
		Accuracy:  round2(m.Accuracy),
		Precision: round2(m.Precision),
		Recall:    round2(m.Recall),
		F1:        round2(m.F1),
	}
}

func mean(ms []Metrics) Metrics {
	if len(ms) == 0 {
		return Metrics{}
	}
	var sum Metrics
	for _, m := range ms {
		sum.Accuracy += m.Accuracy
		sum.Precision += m.Precision
		sum.Recall += m.Recall
		sum.F1 += m.F1
	}
	n := float64(len(ms))
	return Metrics{
		Accuracy:  round2(sum.Accuracy / n),
		Precision: round2(sum.Precision / n),
		Recall:    round2(sum.Recall / n),
		F1:        round2(sum.F1 / n),
	}
}

// marketplaceScore is F1 in hundredths. F1 already carries two decimals, so
// rounding only absorbs float error such as 0.29*100 = 28.999...
func marketplaceScore(f1 float64) int {
	return int(math.Round(f1 * 100))
}

func qualifies(m Metrics, criteria Criteria) bool {
	for _, name := range criteria.Metrics {
		if m.Get(name) < criteria.Thresholds[name] {
			return false
		}
	}
	return true
}
