package stage

import (
	"fmt"
	"strings"
)

// Kind names one of the five pipeline stages.
type Kind string

const (
	Annotate          Kind = "annotate"
	Validate          Kind = "validate"
	Generate          Kind = "generate"
	ValidateGenerated Kind = "validate_generated"
	Adjudicate        Kind = "adjudicate"
)

var order = []Kind{Annotate, Validate, Generate, ValidateGenerated, Adjudicate}

// All returns the stages in pipeline order.
func All() []Kind {
	out := make([]Kind, len(order))
	copy(out, order)
	return out
}

// Parse resolves a stage name. Dashes and case are tolerated so CLI input like
// "Validate-Generated" works.
func Parse(value string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, k := range order {
		if string(k) == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (expected one of %s)", value, strings.Join(Names(), ", "))
}

// Names returns the stage names in pipeline order.
func Names() []string {
	names := make([]string, len(order))
	for i, k := range order {
		names[i] = string(k)
	}
	return names
}

// Valid reports whether k is a known stage.
func (k Kind) Valid() bool {
	return k.Index() >= 0
}

// Index is the zero-based pipeline position, or -1 for unknown stages.
func (k Kind) Index() int {
	for i, candidate := range order {
		if candidate == k {
			return i
		}
	}
	return -1
}

// Next returns the stage that consumes k's forwarded output.
func (k Kind) Next() (Kind, bool) {
	i := k.Index()
	if i < 0 || i == len(order)-1 {
		return "", false
	}
	return order[i+1], true
}

// Previous returns the stage whose forwarded output k consumes.
func (k Kind) Previous() (Kind, bool) {
	i := k.Index()
	if i <= 0 {
		return "", false
	}
	return order[i-1], true
}

// Label renders the stage for humans.
func (k Kind) Label() string {
	switch k {
	case Annotate:
		return "Annotate"
	case Validate:
		return "Validate"
	case Generate:
		return "Generate"
	case ValidateGenerated:
		return "Validate generated"
	case Adjudicate:
		return "Expert adjudicate"
	default:
		return string(k)
	}
}
