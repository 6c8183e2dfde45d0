package quality

import (
	"sort"

	"ckcrowd/internal/stage"
)

// WorkerHistory joins one worker's records across stages.
type WorkerHistory struct {
	WorkerID string                `json:"worker_id"`
	Stages   map[stage.Kind]Record `json:"stages"`
	// Points and Reviewed are summed over every stage.
	Points   int     `json:"points"`
	Reviewed int     `json:"reviewed"`
	Quality  float64 `json:"quality"`
}

// MergeStages joins per-stage records by worker id. Workers are sorted by id.
func MergeStages(reports map[stage.Kind][]Record) []WorkerHistory {
	byWorker := make(map[string]*WorkerHistory)
	for _, kind := range stage.All() {
		for _, rec := range reports[kind] {
			h, ok := byWorker[rec.WorkerID]
			if !ok {
				h = &WorkerHistory{WorkerID: rec.WorkerID, Stages: make(map[stage.Kind]Record)}
				byWorker[rec.WorkerID] = h
			}
			h.Stages[kind] = rec
			h.Points += rec.Points
			h.Reviewed += rec.Reviewed
		}
	}
	out := make([]WorkerHistory, 0, len(byWorker))
	for _, h := range byWorker {
		if h.Reviewed > 0 {
			h.Quality = round2(float64(h.Points) / float64(h.Reviewed))
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out
}
