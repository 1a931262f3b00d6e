package wire

import "fmt"

// ShapeMismatchError is returned when wire data does not structurally match
// the expected shape. It is always recoverable: the failed decode is reported
// to the caller and nothing else is affected.
type ShapeMismatchError struct {
	Want string
	Got  string
}

func (err ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: want %s, got %s", err.Want, err.Got)
}

func mismatch(want Shape, got interface{}) error {
	return ShapeMismatchError{
		Want: want.String(),
		Got:  describe(got),
	}
}

// describe returns a short structural description of a decoded value for
// error messages.
func describe(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case float64, int64, uint64, int:
		return fmt.Sprintf("number (%v)", v)
	case []byte:
		return "bytes"
	case []interface{}:
		return fmt.Sprintf("sequence of %d", len(v))
	case map[string]interface{}:
		return fmt.Sprintf("record of %d fields", len(v))
	case map[interface{}]interface{}:
		return fmt.Sprintf("record of %d fields", len(v))
	}
	return fmt.Sprintf("%T", v)
}
