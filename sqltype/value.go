// Package sqltype turns Go values into escaped SQL literal text.
package sqltype

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Escaper provides the quoting primitives of a database driver.
type Escaper interface {
	// QuoteIdentifier returns name quoted as an identifier.
	QuoteIdentifier(name string) string

	// QuoteLiteral returns s quoted as a string literal.
	QuoteLiteral(s string) string
}

// Type is implemented by values that control their own SQL representation,
// such as composite, date or geometric types.
type Type interface {
	ToDBString(e Escaper) string
}

// Value is a classified column value. The concrete types are Null, Bool,
// Scalar, Array and Custom.
type Value interface {
	isValue()
}

// Null is the SQL NULL value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Scalar is any other value, already formatted as text.
type Scalar string

// Array is an ordered collection of values.
type Array []Value

// Custom wraps a value implementing Type.
type Custom struct {
	Type Type
}

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Scalar) isValue() {}
func (Array) isValue()  {}
func (Custom) isValue() {}

// ValueOf classifies v.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case Type:
		if isNilPointer(v) {
			return Null{}
		}
		return Custom{Type: x}
	case driver.Valuer:
		if isNilPointer(v) {
			return Null{}
		}
		resolved, err := x.Value()
		if err != nil || resolved == nil {
			return Null{}
		}
		return ValueOf(resolved)
	case bool:
		return Bool(x)
	case string:
		return Scalar(x)
	case []byte:
		if x == nil {
			return Null{}
		}
		return Scalar(string(x))
	case int:
		return Scalar(strconv.Itoa(x))
	case int64:
		return Scalar(strconv.FormatInt(x, 10))
	case int32:
		return Scalar(strconv.FormatInt(int64(x), 10))
	case uint64:
		return Scalar(strconv.FormatUint(x, 10))
	case float64:
		return Scalar(strconv.FormatFloat(x, 'g', -1, 64))
	case float32:
		return Scalar(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case time.Time:
		return Scalar(x.Format(time.RFC3339Nano))
	case fmt.Stringer:
		if isNilPointer(v) {
			return Null{}
		}
		return Scalar(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return Null{}
		}
		return arrayOf(rv)
	case reflect.Array:
		return arrayOf(rv)
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return Scalar(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.String:
		return Scalar(rv.String())
	}
	return Scalar(fmt.Sprint(v))
}

func arrayOf(rv reflect.Value) Array {
	out := make(Array, rv.Len())
	for i := range out {
		out[i] = ValueOf(rv.Index(i).Interface())
	}
	return out
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
