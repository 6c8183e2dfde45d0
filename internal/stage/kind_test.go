package stage

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"annotate", Annotate, false},
		{" Validate-Generated ", ValidateGenerated, false},
		{"ADJUDICATE", Adjudicate, false},
		{"rip", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Parse(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransitionsAreLinear(t *testing.T) {
	if _, ok := Annotate.Previous(); ok {
		t.Fatal("annotate has no predecessor")
	}
	if _, ok := Adjudicate.Next(); ok {
		t.Fatal("adjudicate is terminal")
	}
	kinds := All()
	for i := 1; i < len(kinds); i++ {
		prev, ok := kinds[i].Previous()
		if !ok || prev != kinds[i-1] {
			t.Fatalf("unexpected predecessor of %s: %s", kinds[i], prev)
		}
		next, ok := kinds[i-1].Next()
		if !ok || next != kinds[i] {
			t.Fatalf("unexpected successor of %s: %s", kinds[i-1], next)
		}
	}
}

func TestDefinitions(t *testing.T) {
	if Annotate.Definition().Selection() {
		t.Fatal("annotate collects proposals")
	}
	if got := Generate.Definition().Grouping; got != GroupByTaskItems {
		t.Fatalf("generate grouping = %s", got)
	}
	if !Adjudicate.Definition().Terminal {
		t.Fatal("adjudicate should be terminal")
	}
	if Kind("bogus").Valid() {
		t.Fatal("bogus kind should be invalid")
	}
}
