package codec

import (
	"reflect"
)

// MaxListIndex bounds the index accepted for an unbounded list on import.
// Larger indices are reported as unknown columns instead of growing the list.
const MaxListIndex = 1 << 16

// sequence adapts slices and arrays to one interface. Arrays have a fixed
// capacity; slices grow to fit the highest index they are given.
type sequence struct {
	v reflect.Value
	d *FieldDescriptor
}

func (s sequence) fixed() bool { return s.d.Capacity >= 0 }

// Len is the number of occupied slots.
func (s sequence) Len() int {
	if s.v.Kind() == reflect.Slice && s.v.IsNil() {
		return 0
	}
	return s.v.Len()
}

func (s sequence) Index(i int) reflect.Value { return s.v.Index(i) }

// accepts reports whether index i can be written.
func (s sequence) accepts(i int) bool {
	if s.fixed() {
		return i < s.d.Capacity
	}
	return i <= MaxListIndex
}

// reset prepares the sequence for placement of n slots. Lists are replaced
// by a fresh slice of length n; arrays keep their capacity and contents.
func (s *sequence) reset(n int) {
	if s.fixed() {
		return
	}
	s.v.Set(reflect.MakeSlice(s.v.Type(), n, n))
}

// deref follows pointers and interfaces. ok is false when it hits a nil.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// settle follows pointers from v, allocating nil ones, and returns the
// addressable value at the end of the chain.
func settle(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(newValue(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v
}

// wrap stores base, a value of the pointer-stripped type, into dst,
// allocating the pointers dst's type declares.
func wrap(dst reflect.Value, base reflect.Value) {
	if dst.Kind() != reflect.Pointer {
		dst.Set(base)
		return
	}
	p := reflect.New(dst.Type().Elem())
	wrap(p.Elem(), base)
	dst.Set(p)
}
