// Package assert holds invariants that only a programming error can break.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including typed nil pointers stored in an
// interface.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %s to be not nil", v.Type()))
		}
	}
}
