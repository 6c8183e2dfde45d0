package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// InputTask is one task of a stage's input batch, as handed to the task
// renderer. Selection stages show Candidates; Generate shows the facts in
// Content.Knowledge.
type InputTask struct {
	Stage      stage.Kind         `json:"stage"`
	TaskID     string             `json:"task_id"`
	DataID     string             `json:"data_id"`
	Content    submission.Content `json:"content"`
	Candidates []submission.Item  `json:"candidates,omitempty"`
}

// GenerationOptions selects which validated facts can seed a generation task.
type GenerationOptions struct {
	// MinTurn drops groups whose final turn index is not greater than it.
	MinTurn int
	// DistinctTurns drops facts whose head and tail sit in the same turn.
	DistinctTurns bool
}

// PrepareCandidates turns a forward set into the input of a selection stage.
// Groups of one task are merged back into a single task; candidates carry
// the upstream vote count and grade.
func PrepareCandidates(kind stage.Kind, forward []aggregate.Task) []InputTask {
	var out []InputTask
	index := make(map[string]int)
	for _, t := range forward {
		pos, ok := index[t.TaskID]
		if !ok {
			pos = len(out)
			index[t.TaskID] = pos
			out = append(out, InputTask{Stage: kind, TaskID: t.TaskID, DataID: t.DataID, Content: t.Content})
		}
		for _, it := range t.Items {
			item := it.Item
			votes := it.Votes
			item.Votes = &votes
			item.Selected = nil
			out[pos].Candidates = append(out[pos].Candidates, item)
		}
	}
	return out
}

type generationGroup struct {
	dataID   string
	final    int
	dialogue []string
	facts    []submission.Item
	seen     map[[3]string]struct{}
}

// PrepareGeneration groups validated facts by (data id, final turn): the
// final turn is the later of the turns the fact's head and tail were found
// in, and the generated task shows the dialogue up to that turn. Fact ids
// become "<task>/<item>" so they stay unique across tasks.
func PrepareGeneration(forward []aggregate.Task, opts GenerationOptions) []InputTask {
	var groups []*generationGroup
	byKey := make(map[string]*generationGroup)
	for _, t := range forward {
		dialogue := t.Content.Dialogue
		if t.Content.FinalTurn != "" {
			dialogue = append(append([]string(nil), dialogue...), t.Content.FinalTurn)
		}
		for _, it := range t.Items {
			if it.Item.Kind == stage.ItemAlternative {
				continue
			}
			head := anchor(it.Item.HeadTurn, dialogue, it.Item.Head)
			tail := anchor(it.Item.TailTurn, dialogue, it.Item.Tail)
			if head < 0 || tail < 0 || (opts.DistinctTurns && head == tail) {
				continue
			}
			final := max(head, tail)
			if final <= opts.MinTurn || final >= len(dialogue) {
				continue
			}
			key := t.DataID + "\x00" + strconv.Itoa(final)
			g, ok := byKey[key]
			if !ok {
				g = &generationGroup{dataID: t.DataID, final: final, dialogue: dialogue, seen: make(map[[3]string]struct{})}
				byKey[key] = g
				groups = append(groups, g)
			}
			triple := [3]string{it.Item.Head, it.Item.RelationText(), it.Item.Tail}
			if _, dup := g.seen[triple]; dup {
				continue
			}
			g.seen[triple] = struct{}{}
			fact := it.Item
			fact.ID = t.TaskID + "/" + it.Item.ID
			headTurn, tailTurn := head+1, tail+1
			fact.HeadTurn, fact.TailTurn = &headTurn, &tailTurn
			fact.Selected = nil
			fact.Votes = nil
			g.facts = append(g.facts, fact)
		}
	}

	out := make([]InputTask, 0, len(groups))
	for _, g := range groups {
		speaker, _ := ParseTurn(g.dialogue[g.final])
		prefix := ""
		if speaker != "" {
			prefix = speaker + ":"
		}
		out = append(out, InputTask{
			Stage:  stage.Generate,
			TaskID: fmt.Sprintf("%s-%d", g.dataID, g.final),
			DataID: g.dataID,
			Content: submission.Content{
				Dialogue:        append([]string(nil), g.dialogue[:g.final]...),
				FinalTurn:       g.dialogue[g.final],
				FinalTurnPrefix: prefix,
				Knowledge:       g.facts,
			},
		})
	}
	return out
}

// anchor resolves a fact field to a 0-based turn index: the recorded 1-based
// anchor when present, otherwise the first turn containing the text.
func anchor(turn *int, dialogue []string, text string) int {
	if turn != nil {
		if idx := *turn - 1; idx >= 0 && idx < len(dialogue) {
			return idx
		}
		return -1
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return -1
	}
	for i, line := range dialogue {
		if strings.Contains(line, text) {
			return i
		}
	}
	return -1
}

// ParseTurn splits "Speaker: utterance". A turn without a colon has no speaker.
func ParseTurn(turn string) (speaker, utterance string) {
	before, after, found := strings.Cut(turn, ":")
	if !found {
		return "", strings.TrimSpace(turn)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
