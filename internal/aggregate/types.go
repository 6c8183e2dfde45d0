package aggregate

import (
	"fmt"

	"ckcrowd/internal/canonical"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Rating is one rater's binary judgement of a candidate.
type Rating struct {
	WorkerID     string `json:"worker_id"`
	AssignmentID string `json:"assignment_id"`
	Value        int    `json:"value"`
}

// Decision is an operator override of the vote outcome.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// Item is a merged item: every submitted duplicate collapsed onto its first
// occurrence, with the votes it collected.
type Item struct {
	Key  canonical.Key   `json:"key"`
	Item submission.Item `json:"item"`
	// Votes counts distinct authors in proposal stages and distinct selectors
	// in selection stages.
	Votes        int      `json:"votes"`
	Contributors []string `json:"contributors"`
	Ratings      []Rating `json:"ratings,omitempty"`
	// Sources lists the submitted item ids merged into this item.
	Sources   []string `json:"sources,omitempty"`
	Dedupable bool     `json:"dedupable"`
	// Decision, when set, replaces the threshold test. Votes are left as cast.
	Decision Decision `json:"decision,omitempty"`
}

// Accepted reports whether the item cleared threshold.
func (it Item) Accepted(threshold int) bool {
	switch it.Decision {
	case DecisionAccept:
		return true
	case DecisionReject:
		return false
	}
	return it.Votes >= threshold
}

// Task is the aggregate of every submission sharing a grouping key. Tasks
// with zero accepted items are kept so the audit trail is complete.
type Task struct {
	GroupKey    string             `json:"group_key"`
	TaskID      string             `json:"task_id"`
	DataID      string             `json:"data_id"`
	Stage       stage.Kind         `json:"stage"`
	Content     submission.Content `json:"content"`
	Items       []Item             `json:"items"`
	NewItems    []Item             `json:"new_items,omitempty"`
	Assignments []string           `json:"assignments"`
	Workers     []string           `json:"workers"`
	NoneVotes   int                `json:"none_votes"`
	Suppressed  bool               `json:"suppressed"`
	Accepted    int                `json:"accepted"`
}

// AcceptedItems returns the items that cleared threshold, in order.
func (t Task) AcceptedItems(threshold int) []Item {
	out := make([]Item, 0, len(t.Items))
	for _, it := range t.Items {
		if it.Accepted(threshold) {
			out = append(out, it)
		}
	}
	return out
}

// ItemByID finds a merged item by the id of its representative or any merged source.
func (t Task) ItemByID(id string) (Item, bool) {
	for _, it := range append(append([]Item(nil), t.Items...), t.NewItems...) {
		if it.Item.ID == id {
			return it, true
		}
		for _, src := range it.Sources {
			if src == id {
				return it, true
			}
		}
	}
	return Item{}, false
}

// DuplicateError reports an assignment submitted twice into one group.
type DuplicateError struct {
	GroupKey     string
	AssignmentID string
	FirstIndex   int
	SecondIndex  int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: assignment %s appears in records %d and %d of group %s",
		services.ErrDuplicateSubmission, e.AssignmentID, e.FirstIndex, e.SecondIndex, e.GroupKey)
}

func (e *DuplicateError) Unwrap() error {
	return services.ErrDuplicateSubmission
}
