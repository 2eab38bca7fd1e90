package codec

import (
	"reflect"
)

// Row is a flattened record: column path to scalar value. Values are
// string, bool, int64, uint64, float32, float64, or int for a foreign key.
type Row map[string]any

// Values returns the cells of r in header order, formatted as CSV text.
func (r Row) Values(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = FormatValue(r[col])
	}
	return out
}

// Strings returns r with every value formatted as CSV text.
func (r Row) Strings() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[k] = FormatValue(v)
	}
	return out
}

// Flatten projects record, a struct or pointer to struct, onto a Row.
// Absent values (nil pointers, nil slices, nil interfaces) emit no column.
// record is not modified.
func Flatten(record any) Row {
	row := make(Row)
	v, ok := deref(reflect.ValueOf(record))
	if !ok || v.Kind() != reflect.Struct {
		return row
	}
	flattenStruct(row, "", SchemaOf(v.Type()), v)
	return row
}

func flattenStruct(row Row, prefix string, s *Schema, v reflect.Value) {
	for _, f := range s.Fields {
		flattenValue(row, JoinPath(prefix, f.Name), f, v.FieldByIndex(f.Index))
	}
}

func flattenValue(row Row, path string, d *FieldDescriptor, v reflect.Value) {
	if d.Pointer {
		var ok bool
		if v, ok = deref(v); !ok {
			return
		}
	}

	switch d.Kind {
	case KindPrimitive, KindNullable:
		if val, ok := scalarValue(d.prim, v); ok {
			row[path] = val
		}
	case KindEnum:
		row[path] = enumName(d.EnumValues, v)
	case KindForeignKey:
		if v.CanInterface() {
			row[path] = v.Interface().(Reference).ReferenceID()
		}
	case KindNested:
		flattenStruct(row, path, d.Nested, v)
	case KindCollection:
		seq := sequence{v: v, d: d}
		for i := 0; i < seq.Len(); i++ {
			flattenValue(row, JoinPath(path, indexSegment(i)), d.Elem, seq.Index(i))
		}
	}
}
