package adjudication

import "ckcrowd/internal/aggregate"

// Disagreement is a candidate the experts did not rate unanimously.
type Disagreement struct {
	GroupKey string             `json:"group_key" yaml:"group_key"`
	TaskID   string             `json:"task_id" yaml:"task_id"`
	ItemID   string             `json:"item_id" yaml:"item_id"`
	Text     string             `json:"text" yaml:"text"`
	Votes    int                `json:"votes" yaml:"votes"`
	Ratings  []aggregate.Rating `json:"ratings" yaml:"-"`
	Accepted bool               `json:"accepted" yaml:"accepted"`
}

// Summary describes the expert round of one campaign.
type Summary struct {
	Candidates    int            `json:"candidates"`
	Unanimous     int            `json:"unanimous"`
	Accepted      int            `json:"accepted"`
	Rejected      int            `json:"rejected"`
	Resolved      int            `json:"resolved"`
	Disagreements []Disagreement `json:"disagreements"`
}

// Unanimous reports whether every rating of the item has the same value.
// Unrated items are not unanimous.
func Unanimous(it aggregate.Item) bool {
	if len(it.Ratings) == 0 {
		return false
	}
	for _, r := range it.Ratings[1:] {
		if r.Value != it.Ratings[0].Value {
			return false
		}
	}
	return true
}

// Review tallies expert decisions and lists the split ones in task order.
func Review(tasks []aggregate.Task, threshold int) Summary {
	s := Summary{Disagreements: []Disagreement{}}
	for _, t := range tasks {
		for _, it := range t.Items {
			s.Candidates++
			accepted := it.Accepted(threshold)
			if accepted {
				s.Accepted++
			} else {
				s.Rejected++
			}
			if it.Decision != "" {
				s.Resolved++
			}
			if Unanimous(it) {
				s.Unanimous++
				continue
			}
			s.Disagreements = append(s.Disagreements, Disagreement{
				GroupKey: t.GroupKey,
				TaskID:   t.TaskID,
				ItemID:   it.Item.ID,
				Text:     itemText(it),
				Votes:    it.Votes,
				Ratings:  it.Ratings,
				Accepted: accepted,
			})
		}
	}
	return s
}

func itemText(it aggregate.Item) string {
	if it.Item.Text != "" {
		return it.Item.Text
	}
	return it.Item.Head + " " + it.Item.RelationText() + " " + it.Item.Tail
}
