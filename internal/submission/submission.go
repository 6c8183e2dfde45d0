package submission

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"ckcrowd/internal/stage"
)

// Content is the task context shown to the worker. Dialogue tasks fill the
// dialogue fields; the other task families fill their own fields. Unknown
// keys fail decoding so no part of the context is dropped silently.
type Content struct {
	Dialogue        []string `json:"dialogue,omitempty"`
	FinalTurn       string   `json:"final_turn,omitempty"`
	FinalTurnPrefix string   `json:"final_turn_prefix,omitempty"`
	// Knowledge holds the facts shown alongside the context.
	Knowledge []Item `json:"knowledge,omitempty"`

	// Sentence pairs: a coreference sentence with its referents, or a
	// plausible/implausible translation pair.
	Sentence            string `json:"sentence,omitempty"`
	TrueReferent        string `json:"true_referent,omitempty"`
	FalseReferent       string `json:"false_referent,omitempty"`
	PlausibleSentence   string `json:"plausible_sentence,omitempty"`
	ImplausibleSentence string `json:"implausible_sentence,omitempty"`

	Summary   string `json:"summary,omitempty"`
	SummaryID string `json:"summary_id,omitempty"`

	Belief   string `json:"belief,omitempty"`
	Argument string `json:"argument,omitempty"`
	Stance   string `json:"stance,omitempty"`

	Headline string    `json:"headline,omitempty"`
	Intents  []Passage `json:"intents,omitempty"`

	Scenario      string    `json:"scenario,omitempty"`
	SafeActions   []Passage `json:"safe_actions,omitempty"`
	UnsafeActions []Passage `json:"unsafe_actions,omitempty"`
}

// Passage is an identified span of context text such as an intent or an
// action.
type Passage struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

var contentKeys = map[string]struct{}{
	"dialogue": {}, "final_turn": {}, "final_turn_prefix": {}, "knowledge": {},
	"sentence": {}, "true_referent": {}, "false_referent": {},
	"plausible_sentence": {}, "implausible_sentence": {},
	"summary": {}, "summary_id": {},
	"belief": {}, "argument": {}, "stance": {},
	"headline": {}, "intents": {},
	"scenario": {}, "safe_actions": {}, "unsafe_actions": {},
}

// UnmarshalJSON rejects content keys outside the known task families. Items
// nested in the content keep the lenient item decoding.
func (c *Content) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var unknown []string
	for key := range fields {
		if _, ok := contentKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("content: unknown keys %q", unknown)
	}
	type plain Content
	return json.Unmarshal(data, (*plain)(c))
}

// Item is a single fact or alternative. Facts use Head/Relation/Tail;
// alternatives use Text and reference the facts they are built on.
type Item struct {
	ID       string         `json:"id,omitempty"`
	Kind     stage.ItemKind `json:"kind,omitempty"`
	Head     string         `json:"head,omitempty"`
	Prefix   string         `json:"prefix,omitempty"`
	Relation string         `json:"relation,omitempty"`
	Tail     string         `json:"tail,omitempty"`
	HeadTurn *int           `json:"head_turn,omitempty"`
	TailTurn *int           `json:"tail_turn,omitempty"`

	Text         string   `json:"text,omitempty"`
	KnowledgeIDs []string `json:"knowledge_ids,omitempty"`

	// Side records where the item came from (dialogue side, upstream stage).
	Side     string `json:"side,omitempty"`
	Selected *bool  `json:"selected,omitempty"`
	// Quality is a reviewer grade in [-2, 2], absent when ungraded.
	Quality *int `json:"quality,omitempty"`
	// Votes is carried over from an upstream aggregation.
	Votes *int `json:"votes,omitempty"`
}

// RelationText joins the negation prefix and relation ("Not" + "IsA").
func (it Item) RelationText() string {
	return strings.TrimSpace(strings.TrimSpace(it.Prefix) + " " + strings.TrimSpace(it.Relation))
}

// IsSelected reports whether the worker ticked the candidate.
func (it Item) IsSelected() bool {
	return it.Selected != nil && *it.Selected
}

// Graded reports whether the item carries a reviewer grade.
func (it Item) Graded() bool {
	return it.Quality != nil
}

// FinalTurnIndex is the later of the two anchor turns, or -1 when unanchored.
func (it Item) FinalTurnIndex() int {
	idx := -1
	if it.HeadTurn != nil && *it.HeadTurn > idx {
		idx = *it.HeadTurn
	}
	if it.TailTurn != nil && *it.TailTurn > idx {
		idx = *it.TailTurn
	}
	return idx
}

func (it Item) empty() bool {
	return strings.TrimSpace(it.Head) == "" &&
		strings.TrimSpace(it.Relation) == "" &&
		strings.TrimSpace(it.Tail) == "" &&
		strings.TrimSpace(it.Text) == ""
}

// Submission is one assignment: a single worker's answer to a single task.
type Submission struct {
	Stage                stage.Kind `json:"stage,omitempty"`
	TaskID               string     `json:"task_id"`
	DataID               string     `json:"data_id,omitempty"`
	AssignmentID         string     `json:"assignment_id"`
	WorkerID             string     `json:"worker_id"`
	ElapsedTime          float64    `json:"elapsed_time,omitempty"`
	EffectiveElapsedTime float64    `json:"effective_elapsed_time,omitempty"`
	Content              Content    `json:"content"`
	// Items are authored items in proposal stages and the shown candidates
	// in selection stages.
	Items      []Item `json:"items,omitempty"`
	NewItems   []Item `json:"new_items,omitempty"`
	OptionNone bool   `json:"option_none,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
	// Justification is free text explaining an expert decision.
	Justification string `json:"justification,omitempty"`
}

// KnowledgeByID indexes the shown facts by id.
func (s Submission) KnowledgeByID() map[string]Item {
	out := make(map[string]Item, len(s.Content.Knowledge))
	for _, fact := range s.Content.Knowledge {
		if fact.ID != "" {
			out[fact.ID] = fact
		}
	}
	return out
}

// ContextLength is the number of dialogue turns shown before the final turn.
func (s Submission) ContextLength() int {
	return len(s.Content.Dialogue)
}
