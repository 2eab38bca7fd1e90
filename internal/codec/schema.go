package codec

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Identity fields lead every schema in this order.
var identityOrder = map[string]int{"ID": 0, "Name": 1, "State": 2}

// FieldDescriptor describes one field of a record type, or the element
// type of a collection (in which case Name and Index are empty).
type FieldDescriptor struct {
	Name string
	Kind FieldKind

	// Type is the declared type; Base is Type with pointers stripped.
	Type reflect.Type
	Base reflect.Type

	// Index is the reflect field index path. Promoted fields of embedded
	// structs have paths longer than one.
	Index []int

	// Pointer is set when the declared type is a pointer. For primitives
	// this is what makes the field nullable; for nested records it makes
	// the child optional.
	Pointer bool

	Nested     *Schema          // KindNested
	Elem       *FieldDescriptor // KindCollection
	Capacity   int              // KindCollection: array length, -1 for slices
	RefType    reflect.Type     // KindForeignKey: referenced record type
	EnumValues []string         // KindEnum: symbolic names by ordinal

	prim  primitiveKind
	depth int
}

// Schema is the ordered field list of a struct type.
// Schemas are immutable once built.
type Schema struct {
	Type   reflect.Type
	Fields []*FieldDescriptor

	positions map[string]int
}

// Field returns the descriptor for name.
func (s *Schema) Field(name string) (*FieldDescriptor, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.positions[name]
	if !ok {
		return nil, false
	}
	return s.Fields[i], true
}

// Position returns the schema position of name.
func (s *Schema) Position(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.positions[name]
	return i, ok
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

var schemaCache sync.Map // reflect.Type -> *Schema

// SchemaOf returns the schema of t, which may be a struct or a pointer to
// one. Non-struct types yield an empty schema.
func SchemaOf(t reflect.Type) *Schema {
	t = indirectType(t)
	if s, ok := schemaCache.Load(t); ok {
		return s.(*Schema)
	}
	s := buildSchema(t, map[reflect.Type]bool{})
	actual, _ := schemaCache.LoadOrStore(t, s)
	return actual.(*Schema)
}

// SchemaFor returns the schema of the dynamic type of v.
func SchemaFor(v any) *Schema {
	return SchemaOf(reflect.TypeOf(v))
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// buildSchema walks t. Types on the stack are being built further up;
// a field referring back to one of them is downgraded to an opaque primitive.
// Schemas built below the top level are not cached, so the result for a
// recursive type depends only on the root it was requested from.
func buildSchema(t reflect.Type, stack map[reflect.Type]bool) *Schema {
	s := &Schema{Type: t, positions: map[string]int{}}
	if t == nil || t.Kind() != reflect.Struct {
		return s
	}

	stack[t] = true
	defer delete(stack, t)

	var fields []*FieldDescriptor
	collectFields(t, nil, stack, &fields)

	slices.SortStableFunc(fields, func(a, b *FieldDescriptor) int {
		return identityRank(a.Name) - identityRank(b.Name)
	})

	s.Fields = fields
	for i, f := range fields {
		s.positions[f.Name] = i
	}
	return s
}

func identityRank(name string) int {
	if r, ok := identityOrder[name]; ok {
		return r
	}
	return len(identityOrder)
}

func collectFields(t reflect.Type, index []int, stack map[reflect.Type]bool, out *[]*FieldDescriptor) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("csv")
		if tag == "-" || !sf.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		path := make([]int, len(index)+1)
		copy(path, index)
		path[len(index)] = i

		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct && !isSpecialStruct(sf.Type) {
			collectFields(sf.Type, path, stack, out)
			continue
		}
		if name == "" {
			name = sf.Name
		}

		d := describe(sf.Type, stack)
		d.Name = name
		d.Index = path
		d.depth = len(index)
		addField(out, d)
	}
}

// addField applies Go's promotion rule: the shallower of two same-named
// fields wins; at equal depth the first one declared is kept.
func addField(out *[]*FieldDescriptor, d *FieldDescriptor) {
	for i, existing := range *out {
		if existing.Name != d.Name {
			continue
		}
		if d.depth < existing.depth {
			(*out)[i] = d
		}
		return
	}
	*out = append(*out, d)
}

// isSpecialStruct reports struct types that are scalars to the codec.
func isSpecialStruct(t reflect.Type) bool {
	return isReference(t) || classifyPrimitive(t) == primText
}

// describe classifies a declared type.
func describe(t reflect.Type, stack map[reflect.Type]bool) *FieldDescriptor {
	d := &FieldDescriptor{Type: t, Capacity: -1}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
		d.Pointer = true
	}
	d.Base = base

	switch {
	case isReference(base):
		d.Kind = KindForeignKey
		d.RefType = reflect.Zero(base).Interface().(Reference).ReferencedType()
	case isEnum(base):
		d.Kind = KindEnum
		d.EnumValues = reflect.Zero(base).Interface().(Enum).EnumValues()
	case classifyPrimitive(base) == primText || base == bytesType:
		d.Kind = KindPrimitive
		d.prim = classifyPrimitive(base)
	case base.Kind() == reflect.Slice || base.Kind() == reflect.Array:
		d.Kind = KindCollection
		d.Elem = describe(base.Elem(), stack)
		if base.Kind() == reflect.Array {
			d.Capacity = base.Len()
		}
	case base.Kind() == reflect.Struct && !stack[base]:
		d.Kind = KindNested
		d.Nested = buildSchema(base, stack)
	default:
		d.Kind = KindPrimitive
		d.prim = classifyPrimitive(base)
	}

	if d.Kind == KindPrimitive && d.Pointer {
		d.Kind = KindNullable
	}
	return d
}
