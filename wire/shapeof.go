package wire

import (
	"fmt"
	"reflect"
	"strings"
)

var typeOfBytes = reflect.TypeOf([]byte(nil))

// ShapeOf infers a Shape from a Go type: bool, the integer kinds, string,
// []byte, slices as Seq, pointers as Optional, and structs as Record over
// their exported fields in declaration order. Other kinds are not
// marshal-able and return an error.
func ShapeOf(t reflect.Type) (Shape, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int(), nil
	case reflect.String:
		return String(), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Bytes(), nil
		}
		elem, err := ShapeOf(t.Elem())
		if err != nil {
			return Shape{}, err
		}
		return Seq(elem), nil
	case reflect.Ptr:
		elem, err := ShapeOf(t.Elem())
		if err != nil {
			return Shape{}, err
		}
		return Optional(elem), nil
	case reflect.Struct:
		fields := make([]Field, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				// Skip unexported fields
				continue
			}
			fs, err := ShapeOf(f.Type)
			if err != nil {
				return Shape{}, err
			}
			fields = append(fields, Field{Name: fieldName(f), Shape: fs})
		}
		return Record(fields...), nil
	}
	return Shape{}, fmt.Errorf("wire: type %s is not marshal-able", t)
}

// fieldName returns the wire name of a struct field, honoring json tags.
func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

// Assign converts a canonical generic value (as produced by Decode) into a
// value of the given Go type. It is the inverse of normalize for types whose
// ShapeOf matches the value.
func Assign(v interface{}, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if err := assign(v, out); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

func assign(v interface{}, out reflect.Value) error {
	t := out.Type()
	switch t.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			out.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := v.(int64); ok {
			if out.OverflowInt(n) {
				return fmt.Errorf("wire: %d overflows %s", n, t)
			}
			out.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := v.(int64); ok {
			if n < 0 || out.OverflowUint(uint64(n)) {
				return fmt.Errorf("wire: %d overflows %s", n, t)
			}
			out.SetUint(uint64(n))
			return nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			out.SetString(s)
			return nil
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if b, ok := v.([]byte); ok {
				out.SetBytes(b)
				return nil
			}
			break
		}
		if seq, ok := v.([]interface{}); ok {
			slice := reflect.MakeSlice(t, len(seq), len(seq))
			for i, item := range seq {
				if err := assign(item, slice.Index(i)); err != nil {
					return err
				}
			}
			out.Set(slice)
			return nil
		}
	case reflect.Ptr:
		if v == nil {
			out.Set(reflect.Zero(t))
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := assign(v, elem.Elem()); err != nil {
			return err
		}
		out.Set(elem)
		return nil
	case reflect.Struct:
		fields, ok := v.(map[string]interface{})
		if !ok {
			break
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			fv, present := fields[fieldName(f)]
			if !present {
				continue
			}
			if err := assign(fv, out.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("wire: cannot assign %s to %s", describe(v), t)
}
