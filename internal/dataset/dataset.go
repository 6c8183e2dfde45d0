package dataset

import (
	"strconv"
	"strings"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/knowledge"
	"ckcrowd/internal/submission"
)

// Target is one candidate continuation. Label 1 marks the original turn,
// 0 an adjudicated alternative.
type Target struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Label     int              `json:"label"`
	Votes     *int             `json:"votes,omitempty"`
	Knowledge []knowledge.Fact `json:"knowledge"`
}

// Example is one labeled evaluation item.
type Example struct {
	DataID          string   `json:"data_id"`
	TaskID          string   `json:"task_id"`
	Dialogue        []string `json:"dialogue"`
	FinalTurnPrefix string   `json:"final_turn_prefix"`
	Targets         []Target `json:"targets"`
}

// Positive returns the label-1 target.
func (e Example) Positive() Target {
	for _, t := range e.Targets {
		if t.Label == 1 {
			return t
		}
	}
	return Target{}
}

// AssembleOptions are the adjudication stage's gates.
type AssembleOptions struct {
	Threshold int
	// NoneThreshold is the number of "none" votes after which the experts'
	// own alternatives are admitted. Values below 1 are treated as 1.
	NoneThreshold int
}

// Assemble builds the labeled dataset from adjudicated tasks. Tasks sharing
// a data id and context length become one example with exactly one positive
// target; every accepted alternative becomes a negative carrying the facts
// it was written from, and the positive collects the union of those facts.
func Assemble(tasks []aggregate.Task, opts AssembleOptions) []Example {
	noneThreshold := max(opts.NoneThreshold, 1)
	var out []Example
	index := make(map[string]int)
	for _, t := range tasks {
		key := t.DataID + "\x00" + strconv.Itoa(len(t.Content.Dialogue))
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, Example{
				DataID:          t.DataID,
				TaskID:          t.TaskID,
				Dialogue:        append([]string(nil), t.Content.Dialogue...),
				FinalTurnPrefix: t.Content.FinalTurnPrefix,
				Targets: []Target{{
					ID:        t.TaskID,
					Text:      t.Content.FinalTurn,
					Label:     1,
					Knowledge: []knowledge.Fact{},
				}},
			})
		}
		ex := &out[pos]

		candidates := t.AcceptedItems(opts.Threshold)
		if t.NoneVotes >= noneThreshold {
			for _, it := range t.NewItems {
				if it.Accepted(opts.Threshold) {
					candidates = append(candidates, it)
				}
			}
		}
		for _, it := range candidates {
			facts := justifying(it.Item, t.Content)
			votes := it.Votes
			ex.Targets = append(ex.Targets, Target{
				ID:        it.Item.ID,
				Text:      joinPrefix(t.Content.FinalTurnPrefix, CleanUtterance(it.Item.Text)),
				Label:     0,
				Votes:     &votes,
				Knowledge: facts,
			})
			addFacts(&ex.Targets[0], facts)
		}
	}
	return out
}

// justifying resolves the facts an alternative references, or every shown
// fact when it references none.
func justifying(item submission.Item, content submission.Content) []knowledge.Fact {
	byID := make(map[string]submission.Item, len(content.Knowledge))
	for _, f := range content.Knowledge {
		byID[f.ID] = f
	}
	var facts []knowledge.Fact
	if len(item.KnowledgeIDs) > 0 {
		for _, id := range item.KnowledgeIDs {
			if f, ok := byID[id]; ok {
				facts = append(facts, knowledge.Enrich(f))
			}
		}
	}
	if len(facts) == 0 {
		for _, f := range content.Knowledge {
			facts = append(facts, knowledge.Enrich(f))
		}
	}
	if facts == nil {
		facts = []knowledge.Fact{}
	}
	return facts
}

func addFacts(positive *Target, facts []knowledge.Fact) {
	for _, f := range facts {
		exists := false
		for _, have := range positive.Knowledge {
			if have.ID == f.ID {
				exists = true
				break
			}
		}
		if !exists {
			positive.Knowledge = append(positive.Knowledge, f)
		}
	}
}

// CleanUtterance drops a leading "Speaker:" label from generated text.
func CleanUtterance(text string) string {
	if _, after, found := strings.Cut(text, ":"); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(text)
}

func joinPrefix(prefix, text string) string {
	if prefix == "" {
		return text
	}
	return prefix + " " + text
}

// Stats summarizes an assembled dataset.
type Stats struct {
	Examples   int                         `json:"examples"`
	Positives  int                         `json:"positives"`
	Negatives  int                         `json:"negatives"`
	Dimensions map[knowledge.Dimension]int `json:"dimensions"`
}

// Summarize counts targets and the dimensions of the facts justifying the
// positives.
func Summarize(examples []Example) Stats {
	s := Stats{Examples: len(examples), Dimensions: make(map[knowledge.Dimension]int)}
	for _, ex := range examples {
		for _, t := range ex.Targets {
			if t.Label == 1 {
				s.Positives++
				for _, f := range t.Knowledge {
					s.Dimensions[f.Dimension]++
				}
			} else {
				s.Negatives++
			}
		}
	}
	return s
}
