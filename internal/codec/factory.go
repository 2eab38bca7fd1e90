package codec

import (
	"fmt"
	"reflect"
	"sync"
)

var factories sync.Map // reflect.Type -> func() reflect.Value

// RegisterFactory installs the constructor used when the codec needs a
// fresh T, such as a nested record inside a collection slot. Types without
// a factory are zero-initialised.
func RegisterFactory[T any](fn func() *T) {
	t := reflect.TypeFor[T]()
	factories.Store(t, func() reflect.Value { return reflect.ValueOf(fn()) })
}

// RegisterFactoryFunc is RegisterFactory for callers that only hold a
// reflect.Type. fn must return a non-nil pointer to t.
func RegisterFactoryFunc(t reflect.Type, fn func() any) {
	factories.Store(t, func() reflect.Value {
		v := reflect.ValueOf(fn())
		if v.Kind() != reflect.Pointer || v.Type().Elem() != t || v.IsNil() {
			panic(fmt.Sprintf("codec: factory for %s returned %s", t, v.Type()))
		}
		return v
	})
}

// New returns a pointer to a fresh t built by its registered factory.
func New(t reflect.Type) any {
	return newValue(t).Interface()
}

// newValue returns a pointer to a fresh t.
func newValue(t reflect.Type) reflect.Value {
	if f, ok := factories.Load(t); ok {
		return f.(func() reflect.Value)()
	}
	return reflect.New(t)
}
