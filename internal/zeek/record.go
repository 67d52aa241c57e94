package zeek

import (
	"strings"

	"github.com/mimecast/zeekagent/internal/errors"
)

// Kind tells which shape a Value has.
type Kind uint8

// Value kinds. The zero Value is Invalid and cannot be encoded.
const (
	Invalid Kind = iota
	Scalar
	Sequence
)

// Value is either a scalar string or an ordered sequence of strings. The
// shape is decided once at decode time from the field's declared type.
type Value struct {
	kind   Kind
	scalar string
	elems  []string
}

// String returns a scalar Value.
func String(s string) Value {
	return Value{kind: Scalar, scalar: s}
}

// Strings returns a sequence Value holding elems in order.
func Strings(elems ...string) Value {
	return Value{kind: Sequence, elems: elems}
}

// Kind returns the shape of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Scalar returns the scalar string, or "" for sequences.
func (v Value) Scalar() string {
	return v.scalar
}

// Elems returns the sequence elements, or nil for scalars.
func (v Value) Elems() []string {
	return v.elems
}

// Field is one named and typed value of a row.
type Field struct {
	Name  string
	Type  string
	Value Value
}

// IsContainer reports whether typ declares a set or vector.
func IsContainer(typ string) bool {
	return strings.HasSuffix(typ, "]") &&
		(strings.HasPrefix(typ, "set[") || strings.HasPrefix(typ, "vector["))
}

// Record is either a *Comment or a *Row.
type Record interface {
	isRecord()
}

// Comment is a line starting with the marker found after the header. Text
// excludes the marker.
type Comment struct {
	Text string
}

func (*Comment) isRecord() {}

// Row is one data line. Its fields follow the header's declaration order.
type Row struct {
	fields   []Field
	declared int
}

func (*Row) isRecord() {}

// NewRow returns a row holding fields in the given order.
func NewRow(fields ...Field) *Row {
	return &Row{fields: fields, declared: len(fields)}
}

// Len returns the number of fields present.
func (r *Row) Len() int {
	return len(r.fields)
}

// Field returns the field at position i.
func (r *Row) Field(i int) Field {
	return r.fields[i]
}

// Fields returns a copy of all fields in order.
func (r *Row) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Get returns the field called name.
func (r *Row) Get(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Value returns the scalar value of field name, or "" if absent.
func (r *Row) Value(name string) string {
	f, _ := r.Get(name)
	return f.Value.Scalar()
}

// Truncated reports whether the line held fewer tokens than the header
// declared fields.
func (r *Row) Truncated() bool {
	return len(r.fields) < r.declared
}

// Append adds a trailing field. Truncated rows cannot be extended, as the
// new value would be read back under a missing declared field.
func (r *Row) Append(name, typ string, value Value) error {
	if r.Truncated() {
		return errors.Wrapf(errors.ErrFieldCountMismatch,
			"cannot append %q to a row with %d of %d fields", name, len(r.fields), r.declared)
	}
	if _, ok := r.Get(name); ok {
		return errors.Wrapf(errors.ErrDuplicateField, "%q", name)
	}
	r.fields = append(r.fields, Field{Name: name, Type: typ, Value: value})
	r.declared = len(r.fields)
	return nil
}

// AppendString adds a trailing string typed field.
func (r *Row) AppendString(name, value string) error {
	return r.Append(name, "string", String(value))
}
