package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := New("people",
		[]Column{
			{Name: "name", Type: TypeString},
			{Name: "age", Type: TypeNumber},
		},
		[][]any{
			{"alice", 30.0},
			{"bob", nil},
			{"carol", 25.0},
		},
	)
	require.NoError(t, err)
	return snap
}

func TestNewAssignsStableRowIDs(t *testing.T) {
	snap := testSnapshot(t)

	ids := snap.IDs()
	require.Len(t, ids, 3)

	seen := make(map[string]bool)
	for i, id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "row id %q assigned twice", id)
		seen[id] = true
		assert.Equal(t, id, snap.ID(i))
	}

	// Ids resolve back to their rows.
	row, ok := snap.RowByID(ids[1])
	require.True(t, ok)
	assert.Equal(t, "bob", row[0])

	_, ok = snap.RowByID("not-a-row")
	assert.False(t, ok)
}

func TestNewRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		rows    [][]any
	}{
		{
			name: "duplicate column names",
			columns: []Column{
				{Name: "a", Type: TypeString},
				{Name: "a", Type: TypeNumber},
			},
			rows: [][]any{{"x", 1.0}},
		},
		{
			name:    "row width mismatch",
			columns: []Column{{Name: "a", Type: TypeString}},
			rows:    [][]any{{"x", "extra"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", tt.columns, tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestColumnValues(t *testing.T) {
	snap := testSnapshot(t)

	values, err := snap.ColumnValues("age")
	require.NoError(t, err)
	assert.Equal(t, []any{30.0, nil, 25.0}, values)

	_, err = snap.ColumnValues("missing")
	assert.Error(t, err)
}

func TestSampleDeterministic(t *testing.T) {
	rows := make([][]any, 100)
	for i := range rows {
		rows[i] = []any{float64(i)}
	}
	snap, err := New("big", []Column{{Name: "n", Type: TypeNumber}}, rows)
	require.NoError(t, err)

	a, err := snap.Sample(10, 42)
	require.NoError(t, err)
	b, err := snap.Sample(10, 42)
	require.NoError(t, err)

	assert.Equal(t, a.IDs(), b.IDs(), "same seed must pick the same rows")
	assert.Equal(t, 10, a.RowCount())

	// Sampled rows keep the ids they had in the parent snapshot.
	for i, id := range a.IDs() {
		parentRow, ok := snap.RowByID(id)
		require.True(t, ok)
		assert.Equal(t, parentRow, a.Row(i))
	}

	c, err := snap.Sample(10, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.IDs(), c.IDs(), "different seeds should pick different rows")
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull(0.0))
}
