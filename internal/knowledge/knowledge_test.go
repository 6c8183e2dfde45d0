package knowledge

import (
	"testing"

	"ckcrowd/internal/submission"
)

func TestParseRelation(t *testing.T) {
	tests := []struct {
		in   string
		want Relation
	}{
		{"IsA", Relation{Name: "IsA"}},
		{"Not IsA", Relation{Name: "IsA", Negated: true}},
		{"  not   IsA ", Relation{Name: "IsA", Negated: true}},
		{"Not", Relation{Name: "Not"}},
		{"", Relation{}},
	}
	for _, tt := range tests {
		if got := ParseRelation(tt.in); got != tt.want {
			t.Fatalf("ParseRelation(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDimensionOf(t *testing.T) {
	tests := map[string]Dimension{
		"IsA":            Attribution,
		"Not AtLocation": Physical,
		"xIntent":        Social,
		"SymbolOf":       Other,
		"Teleports":      Unknown,
	}
	for label, want := range tests {
		if got := DimensionOf(label); got != want {
			t.Fatalf("DimensionOf(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestVerbalize(t *testing.T) {
	if got := Verbalize("cat", "IsA", "animal"); got != "cat is a subtype or specific instance of animal" {
		t.Fatalf("unexpected positive verbalization %q", got)
	}
	if got := Verbalize("cat", "Not IsA", "plant"); got != "cat is not a subtype or specific instance of plant" {
		t.Fatalf("unexpected negative verbalization %q", got)
	}
	if got := Verbalize("flag", "SymbolOf", "nation"); got != "flag SymbolOf nation" {
		t.Fatalf("unexpected fallback verbalization %q", got)
	}
}

func TestEnrichAndDistribution(t *testing.T) {
	items := []submission.Item{
		{ID: "1", Head: " cat ", Prefix: "Not", Relation: "CapableOf", Tail: "fly"},
		{ID: "2", Head: "rain", Relation: "Causes", Tail: "flood"},
		{ID: "3", Head: "x", Relation: "", Tail: "y"},
	}
	fact := Enrich(items[0])
	if fact.Relation != "Not CapableOf" || fact.Dimension != Attribution || fact.Head != "cat" {
		t.Fatalf("unexpected enriched fact %+v", fact)
	}
	dist := Distribution(items)
	if dist[Attribution] != 1 || dist[Causal] != 1 || len(dist) != 2 {
		t.Fatalf("unexpected distribution %v", dist)
	}
}
