// internal/scraper/patterns_test.go
package scraper

import "testing"

func TestPatternKinds(t *testing.T) {
	tests := []struct {
		raw      string
		input    string
		regexp   bool
		contains bool
		bounded  bool
	}{
		{"first", "user_first_name", false, true, false},
		{"first", "first name", false, true, true},
		{"first.*name", "user_first_name", true, true, false},
		{"name.*first", "first name", true, false, false},
		{"email", "emailaddress", false, true, false},
		{"(.*", "a (.* b", false, true, false},
	}
	for _, tt := range tests {
		p := newPattern(tt.raw)
		if p.IsRegexp() != tt.regexp {
			t.Errorf("%q: expected regexp=%v", tt.raw, tt.regexp)
		}
		if got := p.Contains(tt.input); got != tt.contains {
			t.Errorf("%q in %q: expected contains=%v, got %v", tt.raw, tt.input, tt.contains, got)
		}
		if got := p.Bounded(tt.input); got != tt.bounded {
			t.Errorf("%q in %q: expected bounded=%v, got %v", tt.raw, tt.input, tt.bounded, got)
		}
	}
}

func TestPatternTableOrder(t *testing.T) {
	table := DefaultPatterns()
	entries := table.Entries()
	if len(entries) != len(Fields())-1 {
		t.Fatalf("Expected a pattern list for every field except Submit, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Field != Field(i) {
			t.Errorf("Entry %d: expected %s, got %s", i, Field(i), entry.Field)
		}
	}
	if table.Patterns(Submit) != nil {
		t.Error("Expected no generic patterns for Submit")
	}
}

func TestPatternTableExtra(t *testing.T) {
	table := NewPatternTable(map[Field][]string{City: {"Ville", "  "}})
	if f, ok := table.Match("ville natale"); !ok || f != City {
		t.Errorf("Expected extra pattern to classify City, got %v %v", f, ok)
	}
	base := len(DefaultPatterns().Patterns(City))
	if got := len(table.Patterns(City)); got != base+1 {
		t.Errorf("Expected %d City patterns, got %d", base+1, got)
	}
}

func TestParseField(t *testing.T) {
	for _, f := range Fields() {
		got, ok := ParseField(f.String())
		if !ok || got != f {
			t.Errorf("ParseField(%s): got %v %v", f, got, ok)
		}
	}
	if _, ok := ParseField("Nickname"); ok {
		t.Error("Expected unknown field name to fail")
	}
}
