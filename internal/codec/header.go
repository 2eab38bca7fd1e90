package codec

import (
	"reflect"
	"slices"
	"strings"
)

// cursor tracks where a column path is while descending a schema. Exactly
// one of schema and elem is set while the path is known; both are nil once
// it leaves the schema.
type cursor struct {
	schema *Schema
	elem   *FieldDescriptor
}

func cursorFor(d *FieldDescriptor) cursor {
	switch d.Kind {
	case KindNested:
		return cursor{schema: d.Nested}
	case KindCollection:
		return cursor{elem: d.Elem}
	default:
		return cursor{}
	}
}

func (c cursor) advance(seg string) cursor {
	switch {
	case c.elem != nil:
		if !isIndex(seg) {
			return cursor{}
		}
		return cursorFor(c.elem)
	case c.schema != nil:
		if f, ok := c.schema.Field(seg); ok {
			return cursorFor(f)
		}
	}
	return cursor{}
}

// compare orders two differing segments at the cursor's position.
func (c cursor) compare(a, b string) int {
	ai, bi := isIndex(a), isIndex(b)
	switch {
	case ai && bi:
		return compareIndex(a, b)
	case ai:
		return -1
	case bi:
		return 1
	}

	pa, okA := c.schema.Position(a)
	pb, okB := c.schema.Position(b)
	switch {
	case okA && okB:
		return pa - pb
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

func compareSegments(root *Schema, a, b []string) int {
	c := cursor{schema: root}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return c.compare(a[i], b[i])
		}
		c = c.advance(a[i])
	}
	return len(a) - len(b)
}

// CompareColumns orders two column paths of record type t. It returns a
// negative number when a sorts before b, zero when they are equal and a
// positive number otherwise.
//
// Segments are compared left to right. Indices compare numerically, names
// by their position in the schema at that depth, and names the schema does
// not know sort after the known ones, alphabetically. A path sorts before
// any longer path it prefixes.
func CompareColumns(t reflect.Type, a, b string) int {
	return compareSegments(SchemaOf(t), SplitPath(a), SplitPath(b))
}

// SortColumns sorts cols in place in column order for t.
func SortColumns(t reflect.Type, cols []string) {
	root := SchemaOf(t)
	split := make(map[string][]string, len(cols))
	for _, c := range cols {
		split[c] = SplitPath(c)
	}
	slices.SortStableFunc(cols, func(a, b string) int {
		return compareSegments(root, split[a], split[b])
	})
}

// HeaderFor returns the static columns of t: every scalar leaf reachable
// without data. Arrays expand to their capacity and optional nested records
// are expanded; slices contribute nothing because their length is only known
// per record.
func HeaderFor(t reflect.Type) []string {
	var cols []string
	for _, f := range SchemaOf(t).Fields {
		staticColumns(&cols, f.Name, f)
	}
	return cols
}

func staticColumns(cols *[]string, path string, d *FieldDescriptor) {
	switch d.Kind {
	case KindNested:
		for _, f := range d.Nested.Fields {
			staticColumns(cols, JoinPath(path, f.Name), f)
		}
	case KindCollection:
		for i := 0; i < d.Capacity; i++ {
			staticColumns(cols, JoinPath(path, indexSegment(i)), d.Elem)
		}
	default:
		*cols = append(*cols, path)
	}
}

// TableHeader returns the sorted union of the keys of every row. Rows of
// the same type may contribute different columns when optional parts are
// absent; the union gives them one shared order.
func TableHeader(t reflect.Type, rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for c := range r {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cols = append(cols, c)
		}
	}
	SortColumns(t, cols)
	return cols
}
