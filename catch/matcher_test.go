package catch

import "testing"

func TestWildcardMatcher(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		module, item string
		want         bool
	}{
		{"module wildcard", []string{"env.*"}, "env", "anything", true},
		{"module wildcard other module", []string{"env.*"}, "wbg", "anything", false},
		{"match all", []string{"*"}, "x", "y", true},
		{"exact", []string{"env.f"}, "env", "f", true},
		{"exact mismatch", []string{"env.f"}, "env", "g", false},
		{"bare name", []string{"f"}, "any", "f", true},
		{"placeholder module", []string{"__wbindgen_placeholder__.*"}, "__wbindgen_placeholder__", "__wbg_get", true},
		{"blank patterns", []string{"", " "}, "env", "f", false},
		{"exact and bare together, exact hit", []string{"env.my_import", "raise"}, "env", "my_import", true},
		{"exact and bare together, other module", []string{"env.my_import", "raise"}, "other", "my_import", false},
		{"exact and bare together, bare hit", []string{"env.my_import", "raise"}, "wbg", "raise", true},
		{"exact and bare together, miss", []string{"env.my_import", "raise"}, "env", "log", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWildcardMatcher(tt.patterns)
			if got := m.Match(tt.module, tt.item); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.module, tt.item, got, tt.want)
			}
		})
	}
}

func TestParsePatterns(t *testing.T) {
	m := ParsePatterns("env.*, my_import")
	if !m.Match("env", "x") || !m.Match("wbg", "my_import") {
		t.Error("comma separated patterns not applied")
	}
	if !ParsePatterns("").Empty() {
		t.Error("empty list should produce an empty matcher")
	}
	if m.Empty() {
		t.Error("Empty = true with patterns")
	}
}

func TestNameSetMatcher(t *testing.T) {
	m := NewNameSetMatcher(ImportName{Module: "wasi:io/poll@0.2.0", Name: "block"})
	if !m.Match("wasi:io/poll@0.2.0", "block") {
		t.Error("listed import not matched")
	}
	if m.Match("wasi:io/poll@0.2.0", "ready") || m.Match("wasi:io/poll", "block") {
		t.Error("unlisted import matched")
	}
	if s := (ImportName{Module: "env", Name: "f"}).String(); s != "env.f" {
		t.Errorf("String = %q", s)
	}
}

func TestCompositeMatcher(t *testing.T) {
	m := NewCompositeMatcher(
		NewWildcardMatcher([]string{"a"}),
		nil,
		NewNameSetMatcher(ImportName{Module: "env", Name: "b"}),
	)
	tests := []struct {
		module, name string
		want         bool
	}{
		{"x", "a", true},
		{"env", "b", true},
		{"x", "b", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.module, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.module, tt.name, got, tt.want)
		}
	}
}
