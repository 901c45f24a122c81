package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-labs/veriq/pkg/dataset"
)

func testSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	snap, err := dataset.New("employees",
		[]dataset.Column{
			{Name: "name", Type: dataset.TypeString},
			{Name: "salary", Type: dataset.TypeNumber},
			{Name: "active", Type: dataset.TypeBoolean},
		},
		[][]any{
			{"alice", 30000.0, true},
			{"bob", 50000.0, false},
			{"carol", nil, true},
		},
	)
	require.NoError(t, err)
	return snap
}

func TestDuckDBAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := NewDuckDBAdapter(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, Config{Type: "duckdb", Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestDuckDBAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := NewDuckDBAdapter(nil)

	assert.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.Query(ctx, "SELECT 1")
	assert.Error(t, err)
	assert.Error(t, adp.MaterializeSnapshot(ctx, "t", testSnapshot(t)))
	_, err = adp.GetTableMetadata(ctx, "t")
	assert.Error(t, err)
	assert.NoError(t, adp.Close())
}

func TestMaterializeSnapshot(t *testing.T) {
	ctx := context.Background()
	adp := NewDuckDBAdapter(nil)
	require.NoError(t, adp.Connect(ctx, Config{Type: "duckdb", Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	snap := testSnapshot(t)
	require.NoError(t, adp.MaterializeSnapshot(ctx, "data_table", snap))

	meta, err := adp.GetTableMetadata(ctx, "data_table")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.RowCount)
	require.Len(t, meta.Columns, 5)
	assert.Equal(t, RowIdxColumn, meta.Columns[0].Name)
	assert.Equal(t, RowIDColumn, meta.Columns[1].Name)
	assert.Equal(t, "name", meta.Columns[2].Name)

	// Row ids and order survive the round trip.
	rows, err := adp.Query(ctx, `SELECT "_row_id", "name" FROM "data_table" ORDER BY "_row_idx"`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var i int
	for rows.Next() {
		var id, name string
		require.NoError(t, rows.Scan(&id, &name))
		assert.Equal(t, snap.ID(i), id)
		i++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 3, i)

	// Nulls stay nulls.
	nullRows, err := adp.Query(ctx, `SELECT COUNT(*) FROM "data_table" WHERE "salary" IS NULL`)
	require.NoError(t, err)
	defer func() { _ = nullRows.Close() }()
	require.True(t, nullRows.Next())
	var nullCount int
	require.NoError(t, nullRows.Scan(&nullCount))
	assert.Equal(t, 1, nullCount)
}

func TestMaterializeSnapshotReplacesExisting(t *testing.T) {
	ctx := context.Background()
	adp := NewDuckDBAdapter(nil)
	require.NoError(t, adp.Connect(ctx, Config{Type: "duckdb", Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	snap := testSnapshot(t)
	require.NoError(t, adp.MaterializeSnapshot(ctx, "data_table", snap))
	require.NoError(t, adp.MaterializeSnapshot(ctx, "data_table", snap))

	meta, err := adp.GetTableMetadata(ctx, "data_table")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.RowCount)
}

func TestQueryErrorPaths(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := NewDuckDBAdapter(nil)
	adp.db = db

	mock.ExpectQuery("SELECT boom").WillReturnError(assert.AnError)
	_, err = adp.Query(context.Background(), "SELECT boom")
	assert.ErrorContains(t, err, "failed to execute query")

	mock.ExpectExec("UPDATE nothing").WillReturnError(assert.AnError)
	assert.ErrorContains(t, adp.Exec(context.Background(), "UPDATE nothing"), "failed to execute SQL")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"col"`, QuoteIdent("col"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
