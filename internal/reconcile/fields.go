package reconcile

import (
	"strings"
)

// Rule extracts one candidate value from a raw record. Absent or empty values
// report ok=false so the next rule in a chain is tried.
type Rule interface {
	Extract(record map[string]any) (any, bool)
}

// Path is a dotted path into nested objects, e.g. "propertyId.unitNo".
type Path string

func (p Path) Extract(record map[string]any) (any, bool) {
	v, ok := Lookup(record, string(p))
	if !ok || empty(v) {
		return nil, false
	}
	return v, true
}

type joined struct {
	sep   string
	paths []Path
}

// Joined matches only when every path yields a non-empty string, and returns
// them joined by sep.
func Joined(sep string, paths ...Path) Rule {
	return joined{sep: sep, paths: paths}
}

func (j joined) Extract(record map[string]any) (any, bool) {
	parts := make([]string, 0, len(j.paths))
	for _, p := range j.paths {
		v, ok := p.Extract(record)
		if !ok {
			return nil, false
		}
		s, ok := AsString(v)
		if !ok {
			return nil, false
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, j.sep), true
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(record map[string]any) (any, bool)

func (f RuleFunc) Extract(record map[string]any) (any, bool) { return f(record) }

// FirstValue returns the first value any rule yields.
func FirstValue(record map[string]any, rules ...Rule) (any, bool) {
	if record == nil {
		return nil, false
	}
	for _, r := range rules {
		if v, ok := r.Extract(record); ok {
			return v, true
		}
	}
	return nil, false
}

// FirstString returns the first rule result that renders as a non-empty string.
func FirstString(record map[string]any, rules ...Rule) (string, bool) {
	if record == nil {
		return "", false
	}
	for _, r := range rules {
		v, ok := r.Extract(record)
		if !ok {
			continue
		}
		if s, ok := AsString(v); ok {
			return s, true
		}
	}
	return "", false
}

// Lookup walks a dotted path.
func Lookup(record map[string]any, path string) (any, bool) {
	var cur any = record
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case float64:
		return t == 0
	default:
		return false
	}
}
