package agreement

import (
	"slices"

	"ckcrowd/internal/aggregate"
)

// VoteMatrix holds the ratings of items rated by exactly Raters raters.
// Rows[i][r] is rater r's category for item i.
type VoteMatrix struct {
	Raters int      `json:"raters"`
	Rows   [][]int  `json:"rows"`
	Items  []string `json:"items"`
	// Excluded counts items whose rating count differed from Raters.
	Excluded int `json:"excluded"`
}

// N is the number of covered items.
func (m VoteMatrix) N() int {
	return len(m.Rows)
}

// FromTasks builds the matrix from selection-stage ratings. Items with fewer
// or more ratings than raters are counted as excluded; they still take part
// in threshold gating elsewhere.
func FromTasks(tasks []aggregate.Task, raters int) VoteMatrix {
	m := VoteMatrix{Raters: raters}
	for _, t := range tasks {
		for _, it := range t.Items {
			if len(it.Ratings) != raters {
				m.Excluded++
				continue
			}
			row := make([]int, raters)
			for r, rating := range it.Ratings {
				row[r] = rating.Value
			}
			m.Rows = append(m.Rows, row)
			m.Items = append(m.Items, t.GroupKey+"/"+it.Item.ID)
		}
	}
	return m
}

// categories lists the distinct values of the matrix in ascending order.
func (m VoteMatrix) categories() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, row := range m.Rows {
		for _, v := range row {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
