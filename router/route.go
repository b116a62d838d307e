package router

import (
	"fmt"
	"path"
	"strings"
)

// Meta is the metadata a route record declares. A nil RequiresAuth means the
// record does not declare it and inherits from its ancestors.
type Meta struct {
	RequiresAuth *bool
}

// RequiresAuth returns a [Meta] declaring the flag explicitly.
func RequiresAuth(v bool) Meta {
	return Meta{RequiresAuth: &v}
}

// Route is a static route record. Child paths are relative to the parent
// unless they start with "/"; an empty child path shares the parent path.
type Route struct {
	Path      string
	Name      string
	Component string
	Meta      Meta
	Children  []Route
}

// ResolvedMeta is the effective metadata after inheritance.
type ResolvedMeta struct {
	RequiresAuth bool
}

// Location is a resolved navigation target.
type Location struct {
	Path string
	Name string
	// Matched lists the components from the outermost record to the leaf.
	// It is empty when no route matched.
	Matched []string
	Params  map[string]string
	Meta    ResolvedMeta
}

// IsMatched reports whether the location resolved to a route record.
func (l Location) IsMatched() bool {
	return len(l.Matched) > 0
}

type record struct {
	path       string
	segments   []string
	static     bool
	name       string
	components []string
	meta       ResolvedMeta
}

// Table is an immutable, ordered set of flattened route records.
type Table struct {
	records []record
	byPath  map[string]int
	byName  map[string]int
}

// NewTable flattens routes into a [Table]. Top-level paths must be absolute
// and every record needs a component. When a parent and one of its
// descendants resolve to the same path, the descendant owns the path.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{
		byPath: make(map[string]int),
		byName: make(map[string]int),
	}
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("%w: top-level path %q must start with /", ErrInvalidRoute, r.Path)
		}
		if err := t.add(r, "/", nil, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(r Route, parentPath string, parentComponents []string, inherited *bool) error {
	if r.Component == "" {
		return fmt.Errorf("%w: route %q has no component", ErrInvalidRoute, r.Path)
	}

	full := joinPath(parentPath, r.Path)
	requires := inherited
	if r.Meta.RequiresAuth != nil {
		requires = r.Meta.RequiresAuth
	}
	components := make([]string, len(parentComponents), len(parentComponents)+1)
	copy(components, parentComponents)
	components = append(components, r.Component)

	start := len(t.records)
	for _, child := range r.Children {
		if err := t.add(child, full, components, requires); err != nil {
			return err
		}
	}
	for _, rec := range t.records[start:] {
		if rec.path == full {
			return t.registerName(r.Name, t.byPath[full])
		}
	}

	if _, dup := t.byPath[full]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, full)
	}

	segments := splitPath(full)
	rec := record{
		path:       full,
		segments:   segments,
		static:     isStatic(segments),
		name:       r.Name,
		components: components,
		meta:       ResolvedMeta{RequiresAuth: requires != nil && *requires},
	}
	t.records = append(t.records, rec)
	idx := len(t.records) - 1
	t.byPath[full] = idx
	return t.registerName(r.Name, idx)
}

func (t *Table) registerName(name string, idx int) error {
	if name == "" {
		return nil
	}
	if _, dup := t.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	t.byName[name] = idx
	if t.records[idx].name == "" {
		t.records[idx].name = name
	}
	return nil
}

// Resolve matches a path against the table. Static records win over
// parameterised ones; unmatched paths resolve with no metadata.
func (t *Table) Resolve(raw string) Location {
	p := normalizePath(raw)

	if idx, ok := t.byPath[p]; ok && t.records[idx].static {
		return t.records[idx].location(p, nil)
	}

	segments := splitPath(p)
	for _, rec := range t.records {
		if rec.static {
			continue
		}
		if params, ok := rec.match(segments); ok {
			return rec.location(p, params)
		}
	}

	return Location{Path: p}
}

// ByName returns the location of the named route. Parameterised routes are
// returned with their pattern as path.
func (t *Table) ByName(name string) (Location, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Location{}, false
	}
	rec := t.records[idx]
	return rec.location(rec.path, nil), true
}

// Locations lists every matchable record in table order.
func (t *Table) Locations() []Location {
	out := make([]Location, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec.location(rec.path, nil))
	}
	return out
}

func (r record) location(p string, params map[string]string) Location {
	matched := make([]string, len(r.components))
	copy(matched, r.components)
	return Location{
		Path:    p,
		Name:    r.name,
		Matched: matched,
		Params:  params,
		Meta:    r.meta,
	}
}

func (r record) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(r.segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			if segments[i] == "" {
				return nil, false
			}
			params[seg[1:]] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func joinPath(parent, child string) string {
	switch {
	case strings.HasPrefix(child, "/"):
		return normalizePath(child)
	case child == "":
		return parent
	case parent == "/":
		return normalizePath("/" + child)
	default:
		return normalizePath(parent + "/" + child)
	}
}

func normalizePath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isStatic(segments []string) bool {
	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			return false
		}
	}
	return true
}
