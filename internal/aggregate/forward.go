package aggregate

// Forward returns the tasks the next stage may consume: suppressed tasks and
// tasks without accepted items are dropped, and each remaining task keeps
// only accepted items. Accepted new items are appended after the accepted
// candidates. The input is not modified.
func Forward(tasks []Task, threshold int) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Suppressed {
			continue
		}
		accepted := t.AcceptedItems(threshold)
		for _, it := range t.NewItems {
			if it.Accepted(threshold) {
				accepted = append(accepted, it)
			}
		}
		if len(accepted) == 0 {
			continue
		}
		fwd := t
		fwd.Items = accepted
		fwd.NewItems = nil
		fwd.Accepted = len(accepted)
		fwd.Assignments = append([]string(nil), t.Assignments...)
		fwd.Workers = append([]string(nil), t.Workers...)
		out = append(out, fwd)
	}
	return out
}

// Yield summarizes how much of a stage survives its threshold.
type Yield struct {
	Tasks             int `json:"tasks"`
	TasksWithAccepted int `json:"tasks_with_accepted"`
	SuppressedTasks   int `json:"suppressed_tasks"`
	Items             int `json:"items"`
	AcceptedItems     int `json:"accepted_items"`
	NewItems          int `json:"new_items"`
	AcceptedNewItems  int `json:"accepted_new_items"`
	NoneVotes         int `json:"none_votes"`
}

// Rate is the share of items that cleared threshold.
func (y Yield) Rate() float64 {
	if y.Items == 0 {
		return 0
	}
	return float64(y.AcceptedItems) / float64(y.Items)
}

// ComputeYield tallies a stage's output against threshold.
func ComputeYield(tasks []Task, threshold int) Yield {
	var y Yield
	for _, t := range tasks {
		y.Tasks++
		y.NoneVotes += t.NoneVotes
		if t.Suppressed {
			y.SuppressedTasks++
		}
		accepted := 0
		for _, it := range t.Items {
			y.Items++
			if it.Accepted(threshold) {
				accepted++
			}
		}
		y.AcceptedItems += accepted
		for _, it := range t.NewItems {
			y.NewItems++
			if it.Accepted(threshold) {
				y.AcceptedNewItems++
			}
		}
		if accepted > 0 && !t.Suppressed {
			y.TasksWithAccepted++
		}
	}
	return y
}
