package submission

import (
	"fmt"
	"strings"

	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

// Normalize trims identifiers and fills defaults that depend on the stage.
func (s *Submission) Normalize(def stage.Definition) {
	s.TaskID = strings.TrimSpace(s.TaskID)
	s.DataID = strings.TrimSpace(s.DataID)
	s.AssignmentID = strings.TrimSpace(s.AssignmentID)
	s.WorkerID = strings.TrimSpace(s.WorkerID)
	s.Feedback = strings.TrimSpace(s.Feedback)
	if s.Stage == "" {
		s.Stage = def.Kind
	}
	if s.DataID == "" {
		s.DataID = s.TaskID
	}
	if s.EffectiveElapsedTime == 0 {
		s.EffectiveElapsedTime = s.ElapsedTime
	}
	s.Items = append([]Item(nil), s.Items...)
	s.NewItems = append([]Item(nil), s.NewItems...)
	for i := range s.Items {
		s.Items[i].ID = strings.TrimSpace(s.Items[i].ID)
		if s.Items[i].Kind == "" {
			s.Items[i].Kind = def.Items
		}
	}
	for i := range s.NewItems {
		s.NewItems[i].ID = strings.TrimSpace(s.NewItems[i].ID)
		if s.NewItems[i].Kind == "" {
			s.NewItems[i].Kind = def.Items
		}
	}
}

// Validate checks s against the declared schema of its stage. Failures are
// tagged with services.ErrMalformedSubmission.
func (s Submission) Validate(def stage.Definition) error {
	fail := func(format string, args ...any) error {
		return services.Wrap(services.ErrMalformedSubmission, string(def.Kind), "validate", fmt.Sprintf(format, args...), nil)
	}

	if s.Stage != "" && s.Stage != def.Kind {
		return fail("record declares stage %q", s.Stage)
	}
	switch {
	case s.TaskID == "":
		return fail("task_id is required")
	case s.AssignmentID == "":
		return fail("assignment_id is required")
	case s.WorkerID == "":
		return fail("worker_id is required")
	}
	if s.ElapsedTime < 0 || s.EffectiveElapsedTime < 0 {
		return fail("elapsed time must not be negative")
	}
	if s.OptionNone && !def.AllowsNone {
		return fail("option_none is not offered in this stage")
	}
	if len(s.NewItems) > 0 && !def.AllowsNewItems {
		return fail("new_items are not accepted in this stage")
	}
	if def.NeedsKnowledge && len(s.Content.Knowledge) == 0 {
		return fail("content.knowledge is required")
	}

	if def.Selection() {
		if len(s.Items) == 0 {
			return fail("no candidates were shown")
		}
		seen := make(map[string]struct{}, len(s.Items))
		for i, item := range s.Items {
			if item.ID == "" {
				return fail("candidate %d has no id", i)
			}
			if _, dup := seen[item.ID]; dup {
				return fail("candidate %q listed twice", item.ID)
			}
			seen[item.ID] = struct{}{}
			if item.Selected == nil {
				return fail("candidate %q has no selected flag", item.ID)
			}
		}
	} else if len(s.Items) == 0 && !s.OptionNone {
		return fail("no items were submitted")
	}

	for i, item := range s.Items {
		if err := checkItem(def, item); err != nil {
			return fail("item %d: %v", i, err)
		}
	}
	for i, item := range s.NewItems {
		if err := checkItem(def, item); err != nil {
			return fail("new item %d: %v", i, err)
		}
	}
	return nil
}

func checkItem(def stage.Definition, item Item) error {
	if item.Kind != def.Items {
		return fmt.Errorf("kind %q does not match stage item kind %q", item.Kind, def.Items)
	}
	if item.empty() {
		return fmt.Errorf("item has no content")
	}
	if item.Quality != nil && (*item.Quality < -2 || *item.Quality > 2) {
		return fmt.Errorf("quality %d outside [-2, 2]", *item.Quality)
	}
	if def.Items == stage.ItemAlternative && def.Grouping == stage.GroupByTaskItems && !def.Selection() && len(item.KnowledgeIDs) == 0 {
		return fmt.Errorf("alternative references no knowledge")
	}
	return nil
}
