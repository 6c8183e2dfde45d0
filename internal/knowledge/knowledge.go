package knowledge

import (
	"strings"

	"ckcrowd/internal/submission"
)

// Relation is a parsed relation label.
type Relation struct {
	Name    string
	Negated bool
}

// String renders the relation with its "Not" prefix when negated.
func (r Relation) String() string {
	if r.Negated {
		return "Not " + r.Name
	}
	return r.Name
}

// ParseRelation splits an optional negation prefix from a relation label.
// "not  IsA" and "Not IsA" both parse to {IsA, true}.
func ParseRelation(label string) Relation {
	fields := strings.Fields(label)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "not") {
		return Relation{Name: strings.Join(fields[1:], " "), Negated: true}
	}
	return Relation{Name: strings.Join(fields, " ")}
}

// Known reports whether the relation belongs to the taxonomy.
func Known(label string) bool {
	_, ok := relations[ParseRelation(label).Name]
	return ok
}

// DimensionOf maps a relation to its dimension; negated relations share the
// dimension of their base relation.
func DimensionOf(label string) Dimension {
	if spec, ok := relations[ParseRelation(label).Name]; ok {
		return spec.dimension
	}
	return Unknown
}

// Verbalize renders a fact as an English sentence. Relations without a
// template fall back to "head relation tail".
func Verbalize(head, label, tail string) string {
	rel := ParseRelation(label)
	template := ""
	if spec, ok := relations[rel.Name]; ok {
		template = spec.positive
		if rel.Negated {
			template = spec.negative
		}
	}
	if template == "" {
		return strings.Join(strings.Fields(head+" "+rel.String()+" "+tail), " ")
	}
	return strings.NewReplacer("{head}", head, "{tail}", tail).Replace(template)
}

// Fact is a fact enriched with its dimension and verbalization.
type Fact struct {
	ID         string    `json:"id,omitempty"`
	Head       string    `json:"head"`
	Relation   string    `json:"relation"`
	Tail       string    `json:"tail"`
	Dimension  Dimension `json:"dimension"`
	Verbalized string    `json:"verbalized"`
}

// Enrich attaches dimension and verbalization to a fact item.
func Enrich(item submission.Item) Fact {
	rel := ParseRelation(item.RelationText()).String()
	head := strings.TrimSpace(item.Head)
	tail := strings.TrimSpace(item.Tail)
	return Fact{
		ID:         item.ID,
		Head:       head,
		Relation:   rel,
		Tail:       tail,
		Dimension:  DimensionOf(rel),
		Verbalized: Verbalize(head, rel, tail),
	}
}

// Distribution counts facts per dimension. Items with no relation are ignored.
func Distribution(items []submission.Item) map[Dimension]int {
	out := make(map[Dimension]int)
	for _, item := range items {
		label := item.RelationText()
		if label == "" || label == "{}" {
			continue
		}
		out[DimensionOf(label)]++
	}
	return out
}
