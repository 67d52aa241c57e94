package agent

import (
	"sync/atomic"

	"github.com/mimecast/zeekagent/internal/zeek"
)

// Transform rewrites the records of one log type. TransformHeader is called
// once before any TransformRow; comments are never passed to a Transform.
type Transform interface {
	TransformHeader(h *zeek.Header) error
	TransformRow(row *zeek.Row) error
}

// Table maps a log type, the header's path value, to its transform.
type Table map[string]Transform

// NewTable returns a table routing every path in paths to t.
func NewTable(paths []string, t Transform) Table {
	table := make(Table, len(paths))
	for _, path := range paths {
		table[path] = t
	}
	return table
}

// Lookup returns the transform registered for path.
func (t Table) Lookup(path string) (Transform, bool) {
	transform, ok := t[path]
	return transform, ok && transform != nil
}

// Mapper appends the agent identity to every complete row.
type Mapper struct {
	assigner *Assigner
	skipped  atomic.Uint64
}

// NewMapper returns a transform backed by a.
func NewMapper(a *Assigner) *Mapper {
	return &Mapper{assigner: a}
}

// TransformHeader declares the agent fields.
func (m *Mapper) TransformHeader(h *zeek.Header) error {
	if err := h.AppendField(FieldHostname, "string"); err != nil {
		return err
	}
	return h.AppendField(FieldUUID, "string")
}

// TransformRow appends the assigned agent to row. Truncated rows are left
// unchanged and counted.
func (m *Mapper) TransformRow(row *zeek.Row) error {
	if row.Truncated() {
		m.skipped.Add(1)
		return nil
	}
	agent := m.assigner.AssignRow(row)
	if err := row.AppendString(FieldHostname, agent.Hostname); err != nil {
		return err
	}
	return row.AppendString(FieldUUID, agent.UUID)
}

// Skipped returns the number of truncated rows left without agent fields.
func (m *Mapper) Skipped() uint64 {
	return m.skipped.Load()
}
