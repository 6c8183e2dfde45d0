package quality

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Options configures one scoring pass.
type Options struct {
	Stage stage.Kind
	// Workers bounds how many per-worker folds run at once.
	Workers int
}

// Report is the stage-level worker report.
type Report struct {
	Stage       stage.Kind `json:"stage"`
	Assignments int        `json:"assignments"`
	Tasks       int        `json:"tasks"`
	Workers     int        `json:"workers"`
	Items       int        `json:"items"`
	NewItems    int        `json:"new_items"`
	Reviewed    int        `json:"reviewed"`
	// AnnotationQuality is total points over total graded items.
	AnnotationQuality float64 `json:"annotation_quality"`
	// AnnotationAccuracy is the share of graded candidates whose consensus
	// decision matches the grade. Only selection stages report it.
	AnnotationAccuracy   *float64    `json:"annotation_accuracy,omitempty"`
	QualityDistribution  map[int]int `json:"quality_distribution"`
	MeanElapsed          float64     `json:"mean_elapsed"`
	MeanEffectiveElapsed float64     `json:"mean_effective_elapsed"`
	MinElapsed           float64     `json:"min_elapsed"`
	MaxElapsed           float64     `json:"max_elapsed"`
	Records              []Record    `json:"records"`
}

// Score folds submissions into per-worker records. Proposal stages earn the
// grade of every authored item; selection stages earn grade × (+1 when the
// candidate was selected, −1 otherwise). Submissions are sharded by worker
// and each shard is folded independently, so no record is shared between
// goroutines.
func Score(ctx context.Context, subs []submission.Submission, grades Grades, opts Options) (Report, error) {
	selection := opts.Stage.Definition().Selection()

	var order []string
	shards := make(map[string][]int)
	for i := range subs {
		id := subs[i].WorkerID
		if _, ok := shards[id]; !ok {
			order = append(order, id)
		}
		shards[id] = append(shards[id], i)
	}

	records := make([]Record, len(order))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Workers
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for n, workerID := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[n] = fold(workerID, subs, shards[workerID], grades, selection)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := summarize(opts.Stage, subs, records)
	report.Records = Rank(records)
	return report, nil
}

func fold(workerID string, subs []submission.Submission, indexes []int, grades Grades, selection bool) Record {
	rec := Record{WorkerID: workerID}
	var elapsed, effective float64
	for _, i := range indexes {
		sub := subs[i]
		rec.Assignments++
		rec.AssignmentIDs = append(rec.AssignmentIDs, sub.AssignmentID)
		rec.Items += len(sub.Items)
		rec.NewItems += len(sub.NewItems)
		elapsed += sub.ElapsedTime
		effective += sub.EffectiveElapsedTime

		for _, item := range sub.Items {
			q, ok := grades.Lookup(sub.TaskID, item)
			if !ok {
				continue
			}
			points := q
			if selection && !item.IsSelected() {
				points = -q
			}
			rec.Reviewed++
			rec.Points += points
			if rec.PointsHistogram == nil {
				rec.PointsHistogram = make(map[int]int)
			}
			rec.PointsHistogram[points]++
		}
	}
	if rec.Assignments > 0 {
		rec.MeanElapsed = round2(elapsed / float64(rec.Assignments))
		rec.MeanEffectiveElapsed = round2(effective / float64(rec.Assignments))
	}
	rec.Quality = round2(rec.Ratio())
	return rec
}

func summarize(kind stage.Kind, subs []submission.Submission, records []Record) Report {
	report := Report{
		Stage:               kind,
		Assignments:         len(subs),
		Workers:             len(records),
		QualityDistribution: make(map[int]int),
	}
	tasks := make(map[string]struct{})
	var elapsed, effective float64
	report.MinElapsed = math.Inf(1)
	for _, sub := range subs {
		tasks[sub.TaskID] = struct{}{}
		elapsed += sub.ElapsedTime
		effective += sub.EffectiveElapsedTime
		report.MinElapsed = math.Min(report.MinElapsed, sub.ElapsedTime)
		report.MaxElapsed = math.Max(report.MaxElapsed, sub.ElapsedTime)
	}
	report.Tasks = len(tasks)
	if len(subs) == 0 {
		report.MinElapsed = 0
	} else {
		report.MeanElapsed = round2(elapsed / float64(len(subs)))
		report.MeanEffectiveElapsed = round2(effective / float64(len(subs)))
	}

	points := 0
	for _, rec := range records {
		report.Items += rec.Items
		report.NewItems += rec.NewItems
		report.Reviewed += rec.Reviewed
		points += rec.Points
		for p, n := range rec.PointsHistogram {
			report.QualityDistribution[p] += n
		}
	}
	if report.Reviewed > 0 {
		report.AnnotationQuality = round2(float64(points) / float64(report.Reviewed))
	}
	return report
}

// Accuracy is the share of graded candidates that were accepted at threshold
// and graded positive. Rejected candidates never count as correct, whatever
// their grade. ok is false when no candidate carries a grade.
func Accuracy(tasks []aggregate.Task, grades Grades, threshold int) (float64, bool) {
	graded, correct := 0, 0
	for _, t := range tasks {
		for _, it := range t.Items {
			q, ok := grades.Lookup(t.TaskID, it.Item)
			if !ok {
				continue
			}
			graded++
			if it.Accepted(threshold) && q > 0 {
				correct++
			}
		}
	}
	if graded == 0 {
		return 0, false
	}
	return round2(float64(correct) / float64(graded)), true
}

// Rank orders records by quality ratio, highest first, breaking ties by
// worker id. The input slice is left untouched.
func Rank(records []Record) []Record {
	out := append([]Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Ratio(), out[j].Ratio()
		if ri != rj {
			return ri > rj
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out
}
