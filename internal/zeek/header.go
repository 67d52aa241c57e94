package zeek

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mimecast/zeekagent/internal/errors"
)

// Well known metadata keys.
const (
	KeySeparator    = "separator"
	KeySetSeparator = "set_separator"
	KeyEmptyField   = "empty_field"
	KeyUnsetField   = "unset_field"
	KeyPath         = "path"
	KeyOpen         = "open"
	KeyFields       = "fields"
	KeyTypes        = "types"
)

const (
	// Marker starts every metadata and comment line.
	Marker = '#'

	separatorDecl = "#separator "
)

// Header is the metadata block at the top of a Zeek log. Keys keep their
// declaration order. The separator is held apart from the other keys as it
// is declared differently.
type Header struct {
	separator    string
	rawSeparator string
	keys         []string
	values       map[string]string
}

// NewHeader returns an empty header using separator as field delimiter.
func NewHeader(separator string) *Header {
	return &Header{
		separator:    separator,
		rawSeparator: EscapeSeparator(separator),
		values:       make(map[string]string),
	}
}

// ParseHeader reads the metadata block from br. It stops in front of the
// first line not starting with the marker, which is left unread.
func ParseHeader(br *bufio.Reader) (*Header, error) {
	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Mark(errors.ErrReadFailed, err)
	}
	first = strings.TrimSuffix(first, "\n")
	if !strings.HasPrefix(first, separatorDecl) {
		return nil, errors.Wrap(errors.ErrMalformedHeader, "missing #separator declaration")
	}

	raw := first[len(separatorDecl):]
	sep, err := UnescapeSeparator(raw)
	if err != nil {
		return nil, err
	}
	h := &Header{
		separator:    sep,
		rawSeparator: raw,
		values:       make(map[string]string),
	}

	for {
		next, err := br.Peek(1)
		if err != nil || next[0] != Marker {
			// EOF right after the header is fine, Next reports it.
			break
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Mark(errors.ErrReadFailed, err)
		}
		line = strings.TrimSuffix(line, "\n")[1:]

		pos := strings.Index(line, sep)
		if pos < 0 {
			return nil, errors.Wrapf(errors.ErrMalformedHeader,
				"metadata line %q lacks separator", line)
		}
		h.Set(line[:pos], line[pos+len(sep):])
	}

	return h, nil
}

// UnescapeSeparator decodes the textual form used in the #separator line,
// e.g. `\x09`, into the literal separator.
func UnescapeSeparator(raw string) (string, error) {
	sep, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil || sep == "" {
		return "", errors.Wrapf(errors.ErrMalformedHeader, "cannot decode separator %q", raw)
	}
	return sep, nil
}

// EscapeSeparator encodes every byte of sep as \xHH the way Zeek does.
func EscapeSeparator(sep string) string {
	var sb strings.Builder
	for i := 0; i < len(sep); i++ {
		fmt.Fprintf(&sb, `\x%02x`, sep[i])
	}
	return sb.String()
}

// Separator returns the decoded field separator.
func (h *Header) Separator() string {
	return h.separator
}

// SetSeparator replaces the field separator.
func (h *Header) SetSeparator(sep string) {
	if sep == h.separator {
		return
	}
	h.separator = sep
	h.rawSeparator = EscapeSeparator(sep)
}

// Get returns the value of key.
func (h *Header) Get(key string) (string, bool) {
	if key == KeySeparator {
		return h.separator, true
	}
	value, ok := h.values[key]
	return value, ok
}

// Set stores value under key. New keys go to the end, existing keys keep
// their position.
func (h *Header) Set(key, value string) {
	if key == KeySeparator {
		h.SetSeparator(value)
		return
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Keys returns the metadata keys in declaration order, excluding separator.
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Path returns the log type, e.g. "conn".
func (h *Header) Path() string {
	return h.values[KeyPath]
}

// ContainerSeparator returns the set_separator value, which delimits the
// elements of set and vector fields.
func (h *Header) ContainerSeparator() (string, bool) {
	value, ok := h.values[KeySetSeparator]
	return value, ok
}

// Fields returns the declared field names.
func (h *Header) Fields() ([]string, bool) {
	return h.list(KeyFields)
}

// Types returns the declared field types.
func (h *Header) Types() ([]string, bool) {
	return h.list(KeyTypes)
}

func (h *Header) list(key string) ([]string, bool) {
	value, ok := h.values[key]
	if !ok {
		return nil, false
	}
	return strings.Split(value, h.separator), true
}

// AppendField declares an additional trailing field.
func (h *Header) AppendField(name, typ string) error {
	fields, ok := h.Fields()
	if !ok {
		return errors.Wrapf(errors.ErrMissingSchema, "cannot append %q without #fields", name)
	}
	if _, ok := h.values[KeyTypes]; !ok {
		return errors.Wrapf(errors.ErrMissingSchema, "cannot append %q without #types", name)
	}
	for _, field := range fields {
		if field == name {
			return errors.Wrapf(errors.ErrDuplicateField, "%q", name)
		}
	}
	h.values[KeyFields] += h.separator + name
	h.values[KeyTypes] += h.separator + typ
	return nil
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	clone := &Header{
		separator:    h.separator,
		rawSeparator: h.rawSeparator,
		keys:         append([]string(nil), h.keys...),
		values:       make(map[string]string, len(h.values)),
	}
	for k, v := range h.values {
		clone.values[k] = v
	}
	return clone
}

// WriteTo writes the header block, separator declaration first.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, h.String())
	return int64(n), err
}

// String renders the header block exactly as it is written to a log.
func (h *Header) String() string {
	var sb strings.Builder
	sb.WriteString(separatorDecl)
	sb.WriteString(h.rawSeparator)
	sb.WriteByte('\n')
	for _, key := range h.keys {
		sb.WriteByte(Marker)
		sb.WriteString(key)
		sb.WriteString(h.separator)
		sb.WriteString(h.values[key])
		sb.WriteByte('\n')
	}
	return sb.String()
}
