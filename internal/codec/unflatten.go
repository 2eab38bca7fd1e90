package codec

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var errNotSettable = errors.New("field cannot be set")

// CellError describes a cell whose text could not be stored in its field.
type CellError struct {
	Column string
	Value  string
	Err    error
}

func (e CellError) Error() string {
	return fmt.Sprintf("column %s: value %q: %v", e.Column, e.Value, e.Err)
}

func (e CellError) Unwrap() error { return e.Err }

// Report lists the cells Unflatten did not apply. It is informational;
// the rest of the row has been applied regardless.
type Report struct {
	Failed  []CellError
	Unknown []string
}

// Clean reports whether every cell was applied or intentionally blank.
func (r Report) Clean() bool {
	return len(r.Failed) == 0 && len(r.Unknown) == 0
}

// entry is one cell on its way down the record graph; rest holds the path
// segments not yet consumed.
type entry struct {
	column string
	rest   []string
	value  string
}

func (e entry) shift() entry {
	e.rest = e.rest[1:]
	return e
}

func blank(entries []entry) bool {
	for _, e := range entries {
		if e.value != "" {
			return false
		}
	}
	return true
}

type unflattener struct {
	report Report
}

// Unflatten applies the cells of one CSV row to target, which must be a
// non-nil pointer to a struct.
//
// Empty cells leave their field untouched, and a nested record or list
// whose cells are all empty is left as it is. A non-empty list group
// replaces the list: elements are placed at their index and gaps hold zero
// values. Arrays keep their length; indices past it are ignored. Elements
// that are records are built fresh from their cells.
//
// Because empty cells carry nothing, a slice is only as long as its last
// non-empty element: []string{"x", ""} flattens to "x" and "" and reads
// back as []string{"x"}.
//
// Cells that fail to parse keep the field's previous value and are listed
// in the returned Report, together with columns matching no field.
func Unflatten(target any, raw map[string]string) Report {
	var u unflattener
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return u.report
	}
	v = settle(v.Elem())
	if v.Kind() != reflect.Struct {
		return u.report
	}

	entries := make([]entry, 0, len(raw))
	for col, val := range raw {
		entries = append(entries, entry{column: col, rest: SplitPath(col), value: val})
	}
	u.structure(v, SchemaOf(v.Type()), entries)

	slices.SortFunc(u.report.Failed, func(a, b CellError) int {
		return strings.Compare(a.Column, b.Column)
	})
	slices.Sort(u.report.Unknown)
	return u.report
}

func (u *unflattener) unknown(e entry) {
	u.report.Unknown = append(u.report.Unknown, e.column)
}

func (u *unflattener) fail(e entry, err error) {
	u.report.Failed = append(u.report.Failed, CellError{Column: e.column, Value: e.value, Err: err})
}

// structure dispatches entries to the fields of s in schema order.
func (u *unflattener) structure(v reflect.Value, s *Schema, entries []entry) {
	groups := make(map[string][]entry)
	for _, e := range entries {
		if len(e.rest) == 0 {
			u.unknown(e)
			continue
		}
		groups[e.rest[0]] = append(groups[e.rest[0]], e.shift())
	}
	for _, f := range s.Fields {
		g, ok := groups[f.Name]
		if !ok {
			continue
		}
		delete(groups, f.Name)
		u.field(v.FieldByIndex(f.Index), f, g)
	}
	for _, g := range groups {
		for _, e := range g {
			u.unknown(e)
		}
	}
}

func (u *unflattener) field(v reflect.Value, d *FieldDescriptor, entries []entry) {
	if d.Kind.IsScalar() {
		for _, e := range entries {
			if len(e.rest) > 0 {
				u.unknown(e)
				continue
			}
			u.scalar(v, d, e)
		}
		return
	}

	var sub []entry
	for _, e := range entries {
		if len(e.rest) == 0 {
			u.unknown(e)
			continue
		}
		sub = append(sub, e)
	}
	if len(sub) == 0 || blank(sub) {
		return
	}
	if !v.CanSet() {
		for _, e := range sub {
			u.fail(e, errNotSettable)
		}
		return
	}

	switch d.Kind {
	case KindNested:
		u.structure(settle(v), d.Nested, sub)
	case KindCollection:
		u.collection(settle(v), d, sub)
	}
}

func (u *unflattener) collection(v reflect.Value, d *FieldDescriptor, entries []entry) {
	seq := sequence{v: v, d: d}
	slots := make(map[int][]entry)
	for _, e := range entries {
		seg := e.rest[0]
		i, err := strconv.Atoi(seg)
		if !isIndex(seg) || err != nil || !seq.accepts(i) {
			u.unknown(e)
			continue
		}
		slots[i] = append(slots[i], e.shift())
	}

	var indices []int
	for i, g := range slots {
		if !blank(g) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return
	}
	slices.Sort(indices)

	seq.reset(indices[len(indices)-1] + 1)
	for _, i := range indices {
		u.element(seq.Index(i), d.Elem, slots[i])
	}
}

// element writes one collection slot. Record elements are constructed
// fresh so nothing of the previous occupant survives.
func (u *unflattener) element(v reflect.Value, d *FieldDescriptor, entries []entry) {
	if d.Kind != KindNested {
		u.field(v, d, entries)
		return
	}
	var sub []entry
	for _, e := range entries {
		if len(e.rest) == 0 {
			u.unknown(e)
			continue
		}
		sub = append(sub, e)
	}
	fresh := newValue(d.Base).Elem()
	u.structure(fresh, d.Nested, sub)
	wrap(v, fresh)
}

func (u *unflattener) scalar(v reflect.Value, d *FieldDescriptor, e entry) {
	if e.value == "" {
		return
	}
	nv := reflect.New(d.Base).Elem()
	var err error
	switch d.Kind {
	case KindEnum:
		err = parseEnum(d.EnumValues, nv, e.value)
	case KindForeignKey:
		var id int
		if id, err = strconv.Atoi(strings.TrimSpace(e.value)); err == nil {
			nv.Addr().Interface().(ReferenceSetter).SetReferenceID(id)
		}
	default:
		err = parsePrimitive(d.prim, nv, e.value)
	}
	if err != nil {
		u.fail(e, err)
		return
	}
	if !v.CanSet() {
		u.fail(e, errNotSettable)
		return
	}
	wrap(v, nv)
}
