package wire

import (
	"fmt"
	"strings"
)

// Kind enumerates the structural kinds a Shape can take.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindString
	KindBytes
	KindSeq
	KindOptional
	KindRecord
)

// Shape is a recursive structural description of a marshal-able value.
// Primitive shapes have only a Kind; Seq and Optional carry an element
// shape; Record carries an ordered field list.
type Shape struct {
	Kind   Kind
	Elem   *Shape
	Fields []Field
}

// Field is a named member of a Record shape.
type Field struct {
	Name  string
	Shape Shape
}

func Bool() Shape   { return Shape{Kind: KindBool} }
func Int() Shape    { return Shape{Kind: KindInt} }
func String() Shape { return Shape{Kind: KindString} }
func Bytes() Shape  { return Shape{Kind: KindBytes} }

// Seq returns a shape describing an ordered sequence of elem values.
func Seq(elem Shape) Shape {
	return Shape{Kind: KindSeq, Elem: &elem}
}

// Optional returns a shape describing a value that may be absent.
func Optional(elem Shape) Shape {
	return Shape{Kind: KindOptional, Elem: &elem}
}

// Record returns a shape describing a named record with the given fields, in
// order.
func Record(fields ...Field) Shape {
	return Shape{Kind: KindRecord, Fields: fields}
}

func (s Shape) String() string {
	switch s.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return fmt.Sprintf("seq<%s>", s.Elem)
	case KindOptional:
		return fmt.Sprintf("optional<%s>", s.Elem)
	case KindRecord:
		var b strings.Builder
		b.WriteString("record{")
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(f.Shape.String())
		}
		b.WriteString("}")
		return b.String()
	}
	return fmt.Sprintf("unknown(%d)", int(s.Kind))
}
