package stage

// Role says how workers interact with items in a stage.
type Role string

const (
	// RoleProposal stages collect items authored by workers.
	RoleProposal Role = "proposal"
	// RoleSelection stages show candidates and collect a selected flag per candidate.
	RoleSelection Role = "selection"
)

// ItemKind is the shape of the items a stage handles.
type ItemKind string

const (
	ItemFact        ItemKind = "fact"
	ItemAlternative ItemKind = "alternative"
)

// Grouping decides which submissions are merged together.
type Grouping string

const (
	GroupByTask      Grouping = "task"
	GroupByTaskItems Grouping = "task_items"
)

// Valid reports whether g is a supported grouping mode.
func (g Grouping) Valid() bool {
	return g == GroupByTask || g == GroupByTaskItems
}

// Definition is the declared input/output schema of a stage. Records are
// checked against it at ingestion and artifacts are checked against it at
// load time.
type Definition struct {
	Kind     Kind
	Role     Role
	Items    ItemKind
	Grouping Grouping
	// AllowsNewItems permits extra proposals next to the selections.
	AllowsNewItems bool
	// AllowsNone permits the "none of the above" option.
	AllowsNone bool
	// NeedsKnowledge requires the shown facts in the task content.
	NeedsKnowledge bool
	Terminal       bool
}

// Definition returns the declared schema for k.
func (k Kind) Definition() Definition {
	switch k {
	case Annotate:
		return Definition{Kind: k, Role: RoleProposal, Items: ItemFact, Grouping: GroupByTask}
	case Validate:
		return Definition{Kind: k, Role: RoleSelection, Items: ItemFact, Grouping: GroupByTask, AllowsNewItems: true, AllowsNone: true}
	case Generate:
		return Definition{Kind: k, Role: RoleProposal, Items: ItemAlternative, Grouping: GroupByTaskItems, AllowsNone: true, NeedsKnowledge: true}
	case ValidateGenerated:
		return Definition{Kind: k, Role: RoleSelection, Items: ItemAlternative, Grouping: GroupByTask, AllowsNewItems: true, AllowsNone: true, NeedsKnowledge: true}
	case Adjudicate:
		return Definition{Kind: k, Role: RoleSelection, Items: ItemAlternative, Grouping: GroupByTask, AllowsNewItems: true, AllowsNone: true, NeedsKnowledge: true, Terminal: true}
	default:
		return Definition{Kind: k}
	}
}

// Selection reports whether the stage collects selections over candidates.
func (d Definition) Selection() bool {
	return d.Role == RoleSelection
}
