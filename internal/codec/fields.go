package codec

import (
	"reflect"
)

// FieldView is one entry of a record's field listing, as shown by an
// editor. Composite fields carry their parts in Children.
type FieldView struct {
	Path       string      `json:"path" yaml:"path"`
	Name       string      `json:"name" yaml:"name"`
	Kind       string      `json:"kind" yaml:"kind"`
	Type       string      `json:"type" yaml:"type"`
	Value      string      `json:"value,omitempty" yaml:"value,omitempty"`
	Null       bool        `json:"null,omitempty" yaml:"null,omitempty"`
	Options    []string    `json:"options,omitempty" yaml:"options,omitempty"`
	References string      `json:"references,omitempty" yaml:"references,omitempty"`
	Capacity   int         `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Children   []FieldView `json:"children,omitempty" yaml:"children,omitempty"`
}

// Fields lists the fields of record in schema order, the same order its
// columns take in a table header. Collection elements are named "[i]".
func Fields(record any) []FieldView {
	v, ok := deref(reflect.ValueOf(record))
	if !ok || v.Kind() != reflect.Struct {
		return nil
	}
	return structViews("", SchemaOf(v.Type()), v)
}

func structViews(prefix string, s *Schema, v reflect.Value) []FieldView {
	views := make([]FieldView, 0, len(s.Fields))
	for _, f := range s.Fields {
		views = append(views, fieldView(JoinPath(prefix, f.Name), f.Name, f, v.FieldByIndex(f.Index)))
	}
	return views
}

func fieldView(path, name string, d *FieldDescriptor, v reflect.Value) FieldView {
	fv := FieldView{
		Path:    path,
		Name:    name,
		Kind:    d.Kind.String(),
		Type:    d.Type.String(),
		Options: d.EnumValues,
	}
	if d.RefType != nil {
		fv.References = d.RefType.Name()
	}
	if d.Capacity >= 0 {
		fv.Capacity = d.Capacity
	}

	if d.Pointer {
		var ok bool
		if v, ok = deref(v); !ok {
			fv.Null = true
			return fv
		}
	}

	switch d.Kind {
	case KindPrimitive, KindNullable:
		if val, ok := scalarValue(d.prim, v); ok {
			fv.Value = FormatValue(val)
		} else {
			fv.Null = true
		}
	case KindEnum:
		fv.Value = enumName(d.EnumValues, v)
	case KindForeignKey:
		if v.CanInterface() {
			fv.Value = FormatValue(v.Interface().(Reference).ReferenceID())
		}
	case KindNested:
		fv.Children = structViews(path, d.Nested, v)
	case KindCollection:
		seq := sequence{v: v, d: d}
		for i := 0; i < seq.Len(); i++ {
			seg := indexSegment(i)
			fv.Children = append(fv.Children, fieldView(JoinPath(path, seg), "["+seg+"]", d.Elem, seq.Index(i)))
		}
	}
	return fv
}

// SchemaView describes the static shape of a record type.
type SchemaView struct {
	Type    string       `json:"type" yaml:"type"`
	Fields  []FieldShape `json:"fields" yaml:"fields"`
	Columns []string     `json:"columns" yaml:"columns"`
}

// FieldShape is one field of a SchemaView.
type FieldShape struct {
	Name       string       `json:"name" yaml:"name"`
	Kind       string       `json:"kind" yaml:"kind"`
	Type       string       `json:"type" yaml:"type"`
	Nullable   bool         `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Options    []string     `json:"options,omitempty" yaml:"options,omitempty"`
	References string       `json:"references,omitempty" yaml:"references,omitempty"`
	Capacity   *int         `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Element    *FieldShape  `json:"element,omitempty" yaml:"element,omitempty"`
	Fields     []FieldShape `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Describe returns the shape of t together with its static columns.
func Describe(t reflect.Type) SchemaView {
	s := SchemaOf(t)
	view := SchemaView{Columns: HeaderFor(t)}
	if s.Type != nil {
		view.Type = s.Type.String()
	}
	for _, f := range s.Fields {
		view.Fields = append(view.Fields, shapeOf(f))
	}
	return view
}

func shapeOf(d *FieldDescriptor) FieldShape {
	sh := FieldShape{
		Name:     d.Name,
		Kind:     d.Kind.String(),
		Type:     d.Type.String(),
		Nullable: d.Pointer,
		Options:  d.EnumValues,
	}
	if d.RefType != nil {
		sh.References = d.RefType.Name()
	}
	switch d.Kind {
	case KindNested:
		for _, f := range d.Nested.Fields {
			sh.Fields = append(sh.Fields, shapeOf(f))
		}
	case KindCollection:
		if d.Capacity >= 0 {
			c := d.Capacity
			sh.Capacity = &c
		}
		el := shapeOf(d.Elem)
		sh.Element = &el
	}
	return sh
}
