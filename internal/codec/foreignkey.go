package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Reference is implemented by values that point at a row of another table
// by integer ID.
type Reference interface {
	ReferenceID() int
	ReferencedType() reflect.Type
}

// ReferenceSetter is implemented by pointers to a Reference.
type ReferenceSetter interface {
	SetReferenceID(id int)
}

var (
	referenceType       = reflect.TypeFor[Reference]()
	referenceSetterType = reflect.TypeFor[ReferenceSetter]()
)

func isReference(t reflect.Type) bool {
	return t.Kind() != reflect.Interface &&
		t.Implements(referenceType) &&
		reflect.PointerTo(t).Implements(referenceSetterType)
}

// ForeignKey references a row of the table holding T records.
// It flattens to a single integer column and encodes as a bare JSON number.
type ForeignKey[T any] struct {
	ID int
}

// Ref returns a ForeignKey to the row with the given id.
func Ref[T any](id int) ForeignKey[T] {
	return ForeignKey[T]{ID: id}
}

func (k ForeignKey[T]) ReferenceID() int { return k.ID }

func (ForeignKey[T]) ReferencedType() reflect.Type { return reflect.TypeFor[T]() }

func (k *ForeignKey[T]) SetReferenceID(id int) { k.ID = id }

// String returns the referenced ID.
func (k ForeignKey[T]) String() string { return strconv.Itoa(k.ID) }

func (k ForeignKey[T]) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(k.ID), 10), nil
}

func (k *ForeignKey[T]) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("foreign key: expected integer, got %s", s)
	}
	k.ID = id
	return nil
}

// RewriteReferences walks record and replaces every reference to a row of
// type target whose ID is oldID with newID, at any depth. It returns the
// number of references changed. record must be a pointer.
func RewriteReferences(record any, target reflect.Type, oldID, newID int) int {
	v := reflect.ValueOf(record)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return 0
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return 0
	}
	target = indirectType(target)
	return rewriteStruct(v, SchemaOf(v.Type()), target, oldID, newID)
}

func rewriteStruct(v reflect.Value, s *Schema, target reflect.Type, oldID, newID int) int {
	n := 0
	for _, f := range s.Fields {
		n += rewriteValue(v.FieldByIndex(f.Index), f, target, oldID, newID)
	}
	return n
}

func rewriteValue(v reflect.Value, d *FieldDescriptor, target reflect.Type, oldID, newID int) int {
	v, ok := deref(v)
	if !ok {
		return 0
	}
	switch d.Kind {
	case KindForeignKey:
		if d.RefType != target || !v.CanAddr() {
			return 0
		}
		if v.Interface().(Reference).ReferenceID() != oldID {
			return 0
		}
		v.Addr().Interface().(ReferenceSetter).SetReferenceID(newID)
		return 1
	case KindNested:
		return rewriteStruct(v, d.Nested, target, oldID, newID)
	case KindCollection:
		n := 0
		for i := 0; i < v.Len(); i++ {
			n += rewriteValue(v.Index(i), d.Elem, target, oldID, newID)
		}
		return n
	}
	return 0
}
