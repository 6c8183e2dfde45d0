package workflow

import (
	"fmt"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/dataset"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// contract is the set of tasks, and the item ids within each, that the
// upstream stage handed to a stage. Selection stages may only rate forwarded
// candidates; Generate may only show forwarded facts.
type contract struct {
	upstream stage.Kind
	tasks    map[string]map[string]struct{}
}

func newContract(kind stage.Kind, upstream []aggregate.Task, opts dataset.GenerationOptions) *contract {
	prev, ok := kind.Previous()
	if !ok {
		return nil
	}
	var inputs []dataset.InputTask
	if kind == stage.Generate {
		inputs = dataset.PrepareGeneration(upstream, opts)
	} else {
		inputs = dataset.PrepareCandidates(kind, upstream)
	}
	c := &contract{upstream: prev, tasks: make(map[string]map[string]struct{}, len(inputs))}
	for _, in := range inputs {
		ids := make(map[string]struct{})
		for _, it := range in.Candidates {
			ids[it.ID] = struct{}{}
		}
		for _, it := range in.Content.Knowledge {
			ids[it.ID] = struct{}{}
		}
		c.tasks[in.TaskID] = ids
	}
	return c
}

// check returns why sub breaks the contract, or "" when it conforms.
func (c *contract) check(def stage.Definition, sub submission.Submission) string {
	if c == nil {
		return ""
	}
	ids, ok := c.tasks[sub.TaskID]
	if !ok {
		return fmt.Sprintf("task %q was not forwarded by %s", sub.TaskID, c.upstream)
	}
	if def.Selection() {
		for _, it := range sub.Items {
			if _, ok := ids[it.ID]; !ok {
				return fmt.Sprintf("candidate %q was not forwarded by %s", it.ID, c.upstream)
			}
		}
		return ""
	}
	for _, fact := range sub.Content.Knowledge {
		if _, ok := ids[fact.ID]; !ok {
			return fmt.Sprintf("fact %q was not forwarded by %s", fact.ID, c.upstream)
		}
	}
	return ""
}
