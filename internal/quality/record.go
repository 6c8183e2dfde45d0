package quality

import (
	"math"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/submission"
)

// Record is the per-worker tally for one stage. It is produced by Score and
// not modified afterwards.
type Record struct {
	WorkerID    string `json:"worker_id"`
	Assignments int    `json:"assignments"`
	// AssignmentIDs lists the worker's assignments in input order.
	AssignmentIDs []string `json:"assignment_ids"`
	Items         int      `json:"items"`
	NewItems      int      `json:"new_items"`
	Reviewed      int      `json:"reviewed"`
	Points        int      `json:"points"`
	// Quality is Points/Reviewed rounded to two decimals, 0 when nothing was graded.
	Quality              float64     `json:"quality"`
	PointsHistogram      map[int]int `json:"points_histogram,omitempty"`
	MeanElapsed          float64     `json:"mean_elapsed"`
	MeanEffectiveElapsed float64     `json:"mean_effective_elapsed"`
}

// Ratio is the unrounded quality ratio. It is exactly 0 when no item was graded.
func (r Record) Ratio() float64 {
	if r.Reviewed == 0 {
		return 0
	}
	return float64(r.Points) / float64(r.Reviewed)
}

// Contributions counts the items a worker added to the campaign: authored
// items in proposal stages, new items in selection stages.
func (r Record) Contributions(selection bool) int {
	if selection {
		return r.NewItems
	}
	return r.Items
}

// GradeKey addresses one item of one task.
type GradeKey struct {
	TaskID string `json:"task_id"`
	ItemID string `json:"item_id"`
}

// Grades maps items to reviewer quality labels.
type Grades map[GradeKey]int

// Grade is the serialized form of one grades entry.
type Grade struct {
	TaskID  string `json:"task_id"`
	ItemID  string `json:"item_id"`
	Quality int    `json:"quality"`
}

// GradesFrom collects the quality labels carried by aggregated items,
// typically the forward set of the upstream stage.
func GradesFrom(tasks []aggregate.Task) Grades {
	grades := make(Grades)
	for _, t := range tasks {
		for _, list := range [][]aggregate.Item{t.Items, t.NewItems} {
			for _, it := range list {
				if it.Item.Quality == nil {
					continue
				}
				grades[GradeKey{TaskID: t.TaskID, ItemID: it.Item.ID}] = *it.Item.Quality
				for _, src := range it.Sources {
					key := GradeKey{TaskID: t.TaskID, ItemID: src}
					if _, ok := grades[key]; !ok {
						grades[key] = *it.Item.Quality
					}
				}
			}
		}
	}
	return grades
}

// Add merges explicit grade entries, overriding existing labels.
func (g Grades) Add(entries []Grade) {
	for _, e := range entries {
		g[GradeKey{TaskID: e.TaskID, ItemID: e.ItemID}] = e.Quality
	}
}

// Lookup returns the label carried on the item itself, falling back to the
// grades map.
func (g Grades) Lookup(taskID string, item submission.Item) (int, bool) {
	if item.Quality != nil {
		return *item.Quality, true
	}
	if g == nil {
		return 0, false
	}
	q, ok := g[GradeKey{TaskID: taskID, ItemID: item.ID}]
	return q, ok
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
