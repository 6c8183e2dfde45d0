package agreement

import (
	"fmt"
	"strings"
)

// Level is the level of measurement for Krippendorff's alpha.
type Level string

const (
	Nominal  Level = "nominal"
	Ordinal  Level = "ordinal"
	Interval Level = "interval"
	Ratio    Level = "ratio"
)

// ParseLevel accepts a level name case-insensitively.
func ParseLevel(value string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(value))); l {
	case Nominal, Ordinal, Interval, Ratio:
		return l, nil
	case "":
		return Nominal, nil
	}
	return "", fmt.Errorf("unknown level of measurement %q", value)
}

// KrippendorffAlpha computes alpha through the coincidence matrix of the
// vote matrix. It is undefined when expected disagreement is zero.
func KrippendorffAlpha(m VoteMatrix, level Level) Statistic {
	values := m.categories()
	if len(values) == 0 {
		return Undefined()
	}
	index := make(map[int]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	k := len(values)
	coincidence := make([][]float64, k)
	for i := range coincidence {
		coincidence[i] = make([]float64, k)
	}
	for _, row := range m.Rows {
		if len(row) < 2 {
			continue
		}
		weight := 1 / float64(len(row)-1)
		for i, a := range row {
			for j, b := range row {
				if i == j {
					continue
				}
				coincidence[index[a]][index[b]] += weight
			}
		}
	}

	marginals := make([]float64, k)
	total := 0.0
	for c := range coincidence {
		for _, o := range coincidence[c] {
			marginals[c] += o
		}
		total += marginals[c]
	}
	if total <= 1 {
		return Undefined()
	}

	delta := distance(level, values, marginals)
	observed, expected := 0.0, 0.0
	for c := 0; c < k; c++ {
		for d := 0; d < k; d++ {
			w := delta(c, d)
			observed += coincidence[c][d] * w
			expected += marginals[c] * marginals[d] * w
		}
	}
	if expected == 0 {
		return Undefined()
	}
	return Statistic(1 - (total-1)*observed/expected)
}

// distance returns the squared difference function δ² for the level,
// indexed by position in the sorted value list.
func distance(level Level, values []int, marginals []float64) func(c, d int) float64 {
	switch level {
	case Interval:
		return func(c, d int) float64 {
			diff := float64(values[c] - values[d])
			return diff * diff
		}
	case Ratio:
		return func(c, d int) float64 {
			sum := float64(values[c] + values[d])
			if sum == 0 {
				return 0
			}
			diff := float64(values[c]-values[d]) / sum
			return diff * diff
		}
	case Ordinal:
		return func(c, d int) float64 {
			if c == d {
				return 0
			}
			lo, hi := min(c, d), max(c, d)
			sum := 0.0
			for g := lo; g <= hi; g++ {
				sum += marginals[g]
			}
			v := sum - (marginals[lo]+marginals[hi])/2
			return v * v
		}
	default:
		return func(c, d int) float64 {
			if c == d {
				return 0
			}
			return 1
		}
	}
}
