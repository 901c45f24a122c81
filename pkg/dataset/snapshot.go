// Package dataset provides the immutable, in-memory tabular snapshot
// that validation runs against. Every row carries an opaque identifier
// assigned once at construction; the engine never recomputes ids, so
// violations stay correlated to source rows across sampling and export.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// LogicalType is the caller-visible type of a column.
type LogicalType string

const (
	TypeString  LogicalType = "string"
	TypeNumber  LogicalType = "number"
	TypeBoolean LogicalType = "boolean"
	TypeDate    LogicalType = "date"
)

// Column describes a named, typed column of a snapshot.
type Column struct {
	Name string
	Type LogicalType
}

// Snapshot is an ordered, read-only sequence of rows. Cell values are
// nil (null), string, float64, bool, or time.Time depending on the
// column's logical type; loaders may leave unparsed cells as strings.
type Snapshot struct {
	name     string
	columns  []Column
	colIndex map[string]int
	rows     [][]any
	ids      []string
	idIndex  map[string]int
}

// New builds a snapshot over the given rows and assigns a fresh opaque
// identifier to every row. Each row must have exactly one cell per column.
func New(name string, columns []Column, rows [][]any) (*Snapshot, error) {
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = uuid.NewString()
	}
	return newWithIDs(name, columns, rows, ids)
}

func newWithIDs(name string, columns []Column, rows [][]any, ids []string) (*Snapshot, error) {
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("snapshot %s: %d ids for %d rows", name, len(ids), len(rows))
	}

	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := colIndex[c.Name]; dup {
			return nil, fmt.Errorf("snapshot %s: duplicate column %q", name, c.Name)
		}
		colIndex[c.Name] = i
	}

	idIndex := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := idIndex[id]; dup {
			return nil, fmt.Errorf("snapshot %s: duplicate row id %q", name, id)
		}
		idIndex[id] = i
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("snapshot %s: row %d has %d cells, want %d", name, i, len(row), len(columns))
		}
	}

	return &Snapshot{
		name:     name,
		columns:  columns,
		colIndex: colIndex,
		rows:     rows,
		ids:      ids,
		idIndex:  idIndex,
	}, nil
}

// Name returns the snapshot's reference name.
func (s *Snapshot) Name() string { return s.name }

// Columns returns the column schema in order.
func (s *Snapshot) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Column looks up a column by name.
func (s *Snapshot) Column(name string) (Column, bool) {
	i, ok := s.colIndex[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// HasColumn reports whether the snapshot has a column with the given name.
func (s *Snapshot) HasColumn(name string) bool {
	_, ok := s.colIndex[name]
	return ok
}

// RowCount returns the number of rows.
func (s *Snapshot) RowCount() int { return len(s.rows) }

// ID returns the opaque identifier of the row at position i.
func (s *Snapshot) ID(i int) string { return s.ids[i] }

// IDs returns all row identifiers in row order.
func (s *Snapshot) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Row returns the cells of the row at position i, in column order.
func (s *Snapshot) Row(i int) []any {
	out := make([]any, len(s.rows[i]))
	copy(out, s.rows[i])
	return out
}

// RowByID returns the row for the given identifier, if present.
func (s *Snapshot) RowByID(id string) ([]any, bool) {
	i, ok := s.idIndex[id]
	if !ok {
		return nil, false
	}
	return s.Row(i), true
}

// HasID reports whether the identifier belongs to this snapshot.
func (s *Snapshot) HasID(id string) bool {
	_, ok := s.idIndex[id]
	return ok
}

// ColumnValues returns the cells of the named column in row order.
func (s *Snapshot) ColumnValues(name string) ([]any, error) {
	ci, ok := s.colIndex[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]any, len(s.rows))
	for i, row := range s.rows {
		out[i] = row[ci]
	}
	return out, nil
}

// Sample returns a new snapshot of at most n rows, drawn with the given
// seed. Sampled rows keep their original identifiers and relative
// order, so results from a sampled run still link back to the full
// dataset. The same seed always selects the same rows.
func (s *Snapshot) Sample(n int, seed int64) (*Snapshot, error) {
	if n >= len(s.rows) {
		return s, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("sample size %d is negative", n)
	}

	picked := rand.New(rand.NewSource(seed)).Perm(len(s.rows))[:n]
	sort.Ints(picked)

	rows := make([][]any, n)
	ids := make([]string, n)
	for i, idx := range picked {
		rows[i] = s.rows[idx]
		ids[i] = s.ids[idx]
	}
	return newWithIDs(s.name, s.columns, rows, ids)
}

// IsNull reports whether a cell value counts as null. NaN floats are
// classified as null rather than compared.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

// AsTime returns the cell as a time.Time when the column is date-typed.
func AsTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}
