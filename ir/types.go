package ir

import "strings"

// Type is a function signature.
type Type struct {
	Params  []ValType
	Results []ValType
	ID      TypeID
}

func (t *Type) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range t.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Types is the arena of function types.
type Types struct {
	arena []*Type
}

// Add returns the ID of a type with the given signature, reusing an
// existing entry when one matches.
func (ts *Types) Add(params, results []ValType) TypeID {
	if id, ok := ts.Find(params, results); ok {
		return id
	}
	return ts.Insert(params, results)
}

// Insert always appends a new type, even if an identical one exists.
func (ts *Types) Insert(params, results []ValType) TypeID {
	id := TypeID(len(ts.arena))
	ts.arena = append(ts.arena, &Type{
		ID:      id,
		Params:  append([]ValType(nil), params...),
		Results: append([]ValType(nil), results...),
	})
	return id
}

// Find returns the first type with the given signature.
func (ts *Types) Find(params, results []ValType) (TypeID, bool) {
	for _, t := range ts.arena {
		if sameTypes(t.Params, params) && sameTypes(t.Results, results) {
			return t.ID, true
		}
	}
	return 0, false
}

// Get returns the type with the given ID, or nil.
func (ts *Types) Get(id TypeID) *Type {
	if int(id) >= len(ts.arena) {
		return nil
	}
	return ts.arena[id]
}

// Params returns the parameter types of id.
func (ts *Types) Params(id TypeID) []ValType {
	if t := ts.Get(id); t != nil {
		return t.Params
	}
	return nil
}

// Results returns the result types of id.
func (ts *Types) Results(id TypeID) []ValType {
	if t := ts.Get(id); t != nil {
		return t.Results
	}
	return nil
}

// Len returns the number of types.
func (ts *Types) Len() int {
	return len(ts.arena)
}

// All returns every type in ID order.
func (ts *Types) All() []*Type {
	return ts.arena
}

func sameTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
