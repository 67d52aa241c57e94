package zeek

import (
	"bytes"
	"strings"

	"github.com/mimecast/zeekagent/internal/errors"
)

// Codec turns text lines into records and back. It is bound to the
// separators and the field schema of one header.
type Codec struct {
	separator    string
	setSeparator string
	names        []string
	types        []string
	container    []bool
	// schemaErr is reported on the first row decode, not at construction.
	schemaErr error
}

// NewCodec returns a codec for h. A missing or inconsistent field schema
// does not fail here; it fails the first DecodeLine of a data row.
func NewCodec(h *Header) *Codec {
	c := &Codec{separator: h.Separator()}
	c.setSeparator, _ = h.ContainerSeparator()

	names, okNames := h.Fields()
	types, okTypes := h.Types()
	switch {
	case !okNames:
		c.schemaErr = errors.Wrap(errors.ErrMissingSchema, "no #fields declared")
	case !okTypes:
		c.schemaErr = errors.Wrap(errors.ErrMissingSchema, "no #types declared")
	case len(names) != len(types):
		c.schemaErr = errors.Wrapf(errors.ErrMissingSchema,
			"%d fields but %d types declared", len(names), len(types))
	}
	if c.schemaErr != nil {
		return c
	}

	c.names, c.types = names, types
	c.container = make([]bool, len(types))
	_, hasSetSep := h.ContainerSeparator()
	for i, typ := range types {
		c.container[i] = IsContainer(typ)
		if c.container[i] && !hasSetSep {
			c.schemaErr = errors.Wrapf(errors.ErrMissingSchema,
				"field %q is a container but no #set_separator declared", names[i])
			return c
		}
	}
	return c
}

// FieldCount returns the number of declared fields.
func (c *Codec) FieldCount() int {
	return len(c.names)
}

// DecodeLine lexes line, which must not contain the line terminator. Lines
// starting with the marker become comments. A data line with fewer tokens
// than declared fields decodes to a truncated row.
func (c *Codec) DecodeLine(line string) (Record, error) {
	if len(line) > 0 && line[0] == Marker {
		return &Comment{Text: line[1:]}, nil
	}
	if c.schemaErr != nil {
		return nil, c.schemaErr
	}

	tokens := strings.Split(line, c.separator)
	if len(tokens) > len(c.names) {
		return nil, errors.Wrapf(errors.ErrExtraFields,
			"%d tokens for %d fields", len(tokens), len(c.names))
	}

	row := &Row{fields: make([]Field, len(tokens)), declared: len(c.names)}
	for i, token := range tokens {
		value := String(token)
		if c.container[i] {
			value = Strings(strings.Split(token, c.setSeparator)...)
		}
		row.fields[i] = Field{Name: c.names[i], Type: c.types[i], Value: value}
	}
	return row, nil
}

// Encode renders rec followed by a newline into buf.
func (c *Codec) Encode(buf *bytes.Buffer, rec Record) error {
	return encode(buf, rec, c.separator, c.setSeparator)
}

// EncodeLine renders rec as a newline terminated string.
func (c *Codec) EncodeLine(rec Record) (string, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encode(buf *bytes.Buffer, rec Record, separator, setSeparator string) error {
	switch r := rec.(type) {
	case *Comment:
		buf.WriteByte(Marker)
		buf.WriteString(r.Text)
	case *Row:
		for i, field := range r.fields {
			if i > 0 {
				buf.WriteString(separator)
			}
			switch field.Value.kind {
			case Scalar:
				buf.WriteString(field.Value.scalar)
			case Sequence:
				for j, elem := range field.Value.elems {
					if j > 0 {
						buf.WriteString(setSeparator)
					}
					buf.WriteString(elem)
				}
			default:
				return errors.Wrapf(errors.ErrInvalidFieldValue, "field %q", field.Name)
			}
		}
	default:
		return errors.Wrapf(errors.ErrInvalidArgument, "unknown record type %T", rec)
	}
	buf.WriteByte('\n')
	return nil
}
