package catch

import "strings"

// ImportMatcher decides whether an import should be wrapped.
type ImportMatcher interface {
	Match(module, name string) bool
}

// WildcardMatcher matches import patterns with wildcard support.
//
// Supports patterns like:
//   - "module.name" - exact match
//   - "name" - matches any module with this function name
//   - "module.*" - matches all imports from module
//   - "*" - matches everything
//
// The module part is split at the last dot, so "wasi:io/poll@0.2.0.*" and
// "__wbindgen_placeholder__.__wbg_get" both work.
type WildcardMatcher struct {
	exact       map[string]bool
	names       map[string]bool
	moduleWilds map[string]bool
	matchAll    bool
}

// NewWildcardMatcher creates a matcher with wildcard support.
func NewWildcardMatcher(patterns []string) *WildcardMatcher {
	m := &WildcardMatcher{
		exact:       make(map[string]bool),
		names:       make(map[string]bool),
		moduleWilds: make(map[string]bool),
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "*":
			m.matchAll = true
		case strings.HasSuffix(p, ".*"):
			m.moduleWilds[strings.TrimSuffix(p, ".*")] = true
		case strings.Contains(p, "."):
			m.exact[p] = true
		default:
			m.names[p] = true
		}
	}
	return m
}

// ParsePatterns splits a comma separated pattern list into a WildcardMatcher.
func ParsePatterns(list string) *WildcardMatcher {
	return NewWildcardMatcher(strings.Split(list, ","))
}

// Match returns true if the import matches any pattern.
func (m *WildcardMatcher) Match(module, name string) bool {
	if m.matchAll {
		return true
	}
	if m.moduleWilds[module] {
		return true
	}
	if m.exact[module+"."+name] {
		return true
	}
	return m.names[name]
}

// Empty reports whether no pattern was given.
func (m *WildcardMatcher) Empty() bool {
	return !m.matchAll && len(m.exact) == 0 && len(m.names) == 0 && len(m.moduleWilds) == 0
}

// ImportName is a (module, field) import pair.
type ImportName struct {
	Module string
	Name   string
}

func (n ImportName) String() string {
	return n.Module + "." + n.Name
}

// NameSetMatcher matches an explicit set of imports. Unlike WildcardMatcher it
// never treats a dot inside a module name as a separator.
type NameSetMatcher struct {
	set map[ImportName]bool
}

// NewNameSetMatcher creates a matcher for exactly the given imports.
func NewNameSetMatcher(names ...ImportName) *NameSetMatcher {
	m := &NameSetMatcher{set: make(map[ImportName]bool, len(names))}
	for _, n := range names {
		m.set[n] = true
	}
	return m
}

// Match returns true if the pair is in the set.
func (m *NameSetMatcher) Match(module, name string) bool {
	return m.set[ImportName{Module: module, Name: name}]
}

// CompositeMatcher combines multiple matchers.
type CompositeMatcher struct {
	matchers []ImportMatcher
}

// NewCompositeMatcher creates a matcher that matches if any sub-matcher matches.
func NewCompositeMatcher(matchers ...ImportMatcher) *CompositeMatcher {
	return &CompositeMatcher{matchers: matchers}
}

// Match returns true if any sub-matcher matches.
func (m *CompositeMatcher) Match(module, name string) bool {
	for _, matcher := range m.matchers {
		if matcher != nil && matcher.Match(module, name) {
			return true
		}
	}
	return false
}
