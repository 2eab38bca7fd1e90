package codec

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldKind classifies how a field is projected onto columns.
type FieldKind int

const (
	// KindPrimitive is a scalar stored by value: strings, booleans, numbers
	// and types with a text encoding (time.Time, uuid.UUID).
	KindPrimitive FieldKind = iota
	// KindNullable is a primitive behind a pointer. A nil pointer emits no column.
	KindNullable
	// KindEnum is a named integer type implementing [Enum].
	KindEnum
	// KindForeignKey is a [Reference] to another table, e.g. [ForeignKey].
	KindForeignKey
	// KindNested is a struct (or pointer to struct) expanded into sub-columns.
	KindNested
	// KindCollection is a slice (unbounded list) or array (fixed capacity).
	KindCollection
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindNullable:
		return "nullable"
	case KindEnum:
		return "enum"
	case KindForeignKey:
		return "foreign_key"
	case KindNested:
		return "nested"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind maps to exactly one column.
func (k FieldKind) IsScalar() bool {
	return k != KindNested && k != KindCollection
}

// primitiveKind selects the parse/format pair for a primitive.
type primitiveKind int

const (
	primOpaque primitiveKind = iota
	primString
	primBool
	primInt
	primUint
	primFloat
	primText
	primBytes
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	bytesType           = reflect.TypeFor[[]byte]()

	errOpaque = errors.New("field type has no text form")
)

// classifyPrimitive maps a non-pointer type onto the parse table.
func classifyPrimitive(t reflect.Type) primitiveKind {
	if t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return primText
	}
	if t == bytesType {
		return primBytes
	}
	switch t.Kind() {
	case reflect.String:
		return primString
	case reflect.Bool:
		return primBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return primInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return primUint
	case reflect.Float32, reflect.Float64:
		return primFloat
	default:
		return primOpaque
	}
}

// scalarValue reads a primitive as one of the Row value types.
// The boolean is false when the value is absent (nil map, nil interface)
// or cannot be represented.
func scalarValue(p primitiveKind, v reflect.Value) (any, bool) {
	switch p {
	case primString:
		return v.String(), true
	case primBool:
		return v.Bool(), true
	case primInt:
		return v.Int(), true
	case primUint:
		return v.Uint(), true
	case primFloat:
		if v.Kind() == reflect.Float32 {
			return float32(v.Float()), true
		}
		return v.Float(), true
	case primBytes:
		if v.IsNil() {
			return nil, false
		}
		return string(v.Bytes()), true
	case primText:
		if !v.CanInterface() {
			return nil, false
		}
		m, ok := v.Interface().(encoding.TextMarshaler)
		if !ok {
			return nil, false
		}
		b, err := m.MarshalText()
		if err != nil {
			return nil, false
		}
		return string(b), true
	default:
		return opaqueValue(v)
	}
}

func opaqueValue(v reflect.Value) (any, bool) {
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return nil, false
	case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer:
		if v.IsNil() {
			return nil, false
		}
	}
	if !v.CanInterface() {
		return nil, false
	}
	return fmt.Sprint(v.Interface()), true
}

// parsePrimitive stores s into v, which must be settable and of the kind p
// describes. Numbers and booleans are parsed without locale rules.
func parsePrimitive(p primitiveKind, v reflect.Value, s string) error {
	switch p {
	case primString:
		v.SetString(s)
	case primBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		v.SetBool(b)
	case primInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case primUint:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case primFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case primBytes:
		v.SetBytes([]byte(s))
	case primText:
		u, ok := v.Addr().Interface().(encoding.TextUnmarshaler)
		if !ok {
			return errOpaque
		}
		return u.UnmarshalText([]byte(s))
	default:
		return errOpaque
	}
	return nil
}

// FormatValue renders a Row value as CSV cell text.
// Numbers use the shortest representation that parses back to the same value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
