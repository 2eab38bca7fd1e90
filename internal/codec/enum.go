package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Enum is implemented by named integer types with symbolic values.
// EnumValues returns the names indexed by ordinal; it is called on the zero
// value, so it must not depend on the receiver.
type Enum interface {
	EnumValues() []string
}

var enumType = reflect.TypeFor[Enum]()

func isEnum(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t.Implements(enumType)
	}
	return false
}

// enumName renders an enum value. Ordinals without a name fall back to
// their number.
func enumName(names []string, v reflect.Value) string {
	var ord int64
	if v.CanInt() {
		ord = v.Int()
	} else {
		ord = int64(v.Uint())
	}
	if ord >= 0 && ord < int64(len(names)) {
		return names[ord]
	}
	return strconv.FormatInt(ord, 10)
}

// parseEnum resolves s by exact name, then case-insensitively, then as a
// bare ordinal, and stores the ordinal into v.
func parseEnum(names []string, v reflect.Value, s string) error {
	s = strings.TrimSpace(s)
	ord := -1
	for i, n := range names {
		if n == s {
			ord = i
			break
		}
	}
	if ord < 0 {
		for i, n := range names {
			if strings.EqualFold(n, s) {
				ord = i
				break
			}
		}
	}
	if ord < 0 {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= len(names) {
			return fmt.Errorf("unknown value %q (want one of %s)", s, strings.Join(names, ", "))
		}
		ord = n
	}
	if v.CanInt() {
		v.SetInt(int64(ord))
	} else {
		v.SetUint(uint64(ord))
	}
	return nil
}

// EnumName returns the symbolic name of an enum value.
func EnumName[E Enum](e E) string {
	return enumName(e.EnumValues(), reflect.ValueOf(e))
}

// ParseEnum resolves s against the names of E.
func ParseEnum[E Enum](s string) (E, error) {
	var e E
	v := reflect.ValueOf(&e).Elem()
	if !isEnum(v.Type()) {
		return e, fmt.Errorf("%s is not an integer enum", v.Type())
	}
	err := parseEnum(e.EnumValues(), v, s)
	return e, err
}
