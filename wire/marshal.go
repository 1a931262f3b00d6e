package wire

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
)

// Encode converts a value conforming to shape s into wire bytes. The value is
// first normalized into the canonical generic form (see Decode), so any Go
// value that structurally conforms is accepted: integer kinds for Int,
// structs or string-keyed maps for Record, nil or non-nil pointers for
// Optional.
func Encode(v interface{}, s Shape, c Codec) ([]byte, error) {
	canon, err := normalize(v, s)
	if err != nil {
		return nil, err
	}
	return c.Marshal(canon)
}

// Decode parses wire bytes against shape s and returns the canonical generic
// form: bool, int64, string, []byte, []interface{} for Seq,
// map[string]interface{} for Record, and nil for an absent Optional. Bytes
// that do not structurally match s fail with ShapeMismatchError.
func Decode(data []byte, s Shape, c Codec) (interface{}, error) {
	var raw interface{}
	if err := c.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return conform(raw, s)
}

// EncodeArgs encodes a positional argument list. When shapes is nil the
// shape of each argument is inferred from its Go type, which is sufficient
// for self-describing encodings.
func EncodeArgs(c Codec, shapes []Shape, args ...interface{}) ([]byte, error) {
	if shapes != nil && len(args) != len(shapes) {
		return nil, fmt.Errorf("wire: have %d args, want %d", len(args), len(shapes))
	}
	canon := make([]interface{}, 0, len(args))
	for i, arg := range args {
		var (
			v   interface{}
			err error
		)
		if shapes == nil {
			v, err = normalizeAny(arg)
		} else {
			v, err = normalize(arg, shapes[i])
		}
		if err != nil {
			return nil, err
		}
		canon = append(canon, v)
	}
	return c.Marshal(canon)
}

// CheckArgs verifies a positional argument list against the given shapes
// without encoding it.
func CheckArgs(shapes []Shape, args ...interface{}) error {
	if len(args) != len(shapes) {
		return fmt.Errorf("wire: have %d args, want %d", len(args), len(shapes))
	}
	for i, arg := range args {
		if _, err := normalize(arg, shapes[i]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeArgs decodes a positional argument list against the given shapes.
func DecodeArgs(c Codec, shapes []Shape, data []byte) ([]interface{}, error) {
	if len(data) == 0 {
		if len(shapes) == 0 {
			return nil, nil
		}
		return nil, ShapeMismatchError{
			Want: fmt.Sprintf("%d args", len(shapes)),
			Got:  "none",
		}
	}
	var raw []interface{}
	if err := c.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) != len(shapes) {
		return nil, ShapeMismatchError{
			Want: fmt.Sprintf("%d args", len(shapes)),
			Got:  fmt.Sprintf("%d args", len(raw)),
		}
	}
	args := make([]interface{}, 0, len(shapes))
	for i, r := range raw {
		v, err := conform(r, shapes[i])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// conform structurally checks a decoded generic value against a shape and
// returns the canonical form. No type coercion happens here: a string never
// conforms to Int, a number never conforms to String. The only translations
// are encoding artifacts: JSON numbers arrive as float64 and byte sequences
// as base64 strings.
func conform(raw interface{}, s Shape) (interface{}, error) {
	switch s.Kind {
	case KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case KindInt:
		switch n := raw.(type) {
		case int64:
			return n, nil
		case uint64:
			if n > math.MaxInt64 {
				return nil, mismatch(s, raw)
			}
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, mismatch(s, raw)
			}
			return int64(n), nil
		}
	case KindString:
		if str, ok := raw.(string); ok {
			return str, nil
		}
	case KindBytes:
		switch b := raw.(type) {
		case []byte:
			return b, nil
		case string:
			// JSON carries byte sequences as base64 text.
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, mismatch(s, raw)
			}
			return decoded, nil
		}
	case KindSeq:
		if seq, ok := raw.([]interface{}); ok {
			out := make([]interface{}, 0, len(seq))
			for _, item := range seq {
				v, err := conform(item, *s.Elem)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		}
	case KindOptional:
		if raw == nil {
			return nil, nil
		}
		return conform(raw, *s.Elem)
	case KindRecord:
		fields, ok := recordFields(raw)
		if !ok {
			break
		}
		out := make(map[string]interface{}, len(s.Fields))
		seen := 0
		for _, f := range s.Fields {
			rawField, present := fields[f.Name]
			if !present {
				if f.Shape.Kind == KindOptional {
					out[f.Name] = nil
					continue
				}
				return nil, ShapeMismatchError{
					Want: s.String(),
					Got:  fmt.Sprintf("record missing field %q", f.Name),
				}
			}
			seen++
			v, err := conform(rawField, f.Shape)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		if seen != len(fields) {
			return nil, ShapeMismatchError{
				Want: s.String(),
				Got:  fmt.Sprintf("record of %d fields", len(fields)),
			}
		}
		return out, nil
	}
	return nil, mismatch(s, raw)
}

// recordFields flattens the map forms produced by the supported codecs into
// a string-keyed lookup.
func recordFields(raw interface{}) (map[string]interface{}, bool) {
	switch m := raw.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			name, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[name] = v
		}
		return out, true
	}
	return nil, false
}

// normalize converts an arbitrary Go value into canonical generic form,
// verifying it conforms to the shape.
func normalize(v interface{}, s Shape) (interface{}, error) {
	rv := reflect.ValueOf(v)
	switch s.Kind {
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt64 {
				return nil, mismatch(s, v)
			}
			return int64(u), nil
		}
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindBytes:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	case KindSeq:
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := make([]interface{}, 0, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				item, err := normalize(rv.Index(i).Interface(), *s.Elem)
				if err != nil {
					return nil, err
				}
				out = append(out, item)
			}
			return out, nil
		}
	case KindOptional:
		if v == nil {
			return nil, nil
		}
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil, nil
			}
			return normalize(rv.Elem().Interface(), *s.Elem)
		}
		return normalize(v, *s.Elem)
	case KindRecord:
		switch rv.Kind() {
		case reflect.Map:
			if fields, ok := recordFields(v); ok {
				return normalizeRecord(fields, s)
			}
		case reflect.Struct:
			fields := make(map[string]interface{}, rv.NumField())
			rt := rv.Type()
			for i := 0; i < rt.NumField(); i++ {
				if rt.Field(i).PkgPath != "" {
					continue
				}
				fields[fieldName(rt.Field(i))] = rv.Field(i).Interface()
			}
			return normalizeRecord(fields, s)
		}
	}
	return nil, mismatch(s, v)
}

func normalizeRecord(fields map[string]interface{}, s Shape) (interface{}, error) {
	out := make(map[string]interface{}, len(s.Fields))
	seen := 0
	for _, f := range s.Fields {
		fv, present := fields[f.Name]
		if !present {
			if f.Shape.Kind == KindOptional {
				out[f.Name] = nil
				continue
			}
			return nil, ShapeMismatchError{
				Want: s.String(),
				Got:  fmt.Sprintf("record missing field %q", f.Name),
			}
		}
		seen++
		v, err := normalize(fv, f.Shape)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	if seen != len(fields) {
		return nil, ShapeMismatchError{
			Want: s.String(),
			Got:  fmt.Sprintf("record of %d fields", len(fields)),
		}
	}
	return out, nil
}

// normalizeAny converts a Go value into canonical generic form with the
// shape inferred from the value itself. Used by callers that do not hold a
// descriptor, such as the client side of a call.
func normalizeAny(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	s, err := ShapeOf(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	return normalize(v, s)
}
