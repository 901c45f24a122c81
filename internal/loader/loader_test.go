package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-labs/veriq/pkg/dataset"
)

func TestParseCSV(t *testing.T) {
	data := []byte(`name,age,active,joined
alice,30,true,2024-01-15
bob,,false,2024-02-01
carol,45,t,
`)

	snap, err := ParseCSV("people", data)
	require.NoError(t, err)

	cols := snap.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, dataset.TypeString, cols[0].Type)
	assert.Equal(t, dataset.TypeNumber, cols[1].Type)
	assert.Equal(t, dataset.TypeBoolean, cols[2].Type)
	assert.Equal(t, dataset.TypeDate, cols[3].Type)

	assert.Equal(t, 3, snap.RowCount())
	assert.Equal(t, []any{"alice", 30.0, true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}, snap.Row(0))

	// Empty cells are nulls, not zero values.
	assert.Nil(t, snap.Row(1)[1])
	assert.Nil(t, snap.Row(2)[3])
}

func TestParseCSVMixedColumnFallsBackToString(t *testing.T) {
	data := []byte("v\n1\nhello\n")

	snap, err := ParseCSV("mixed", data)
	require.NoError(t, err)
	assert.Equal(t, dataset.TypeString, snap.Columns()[0].Type)
	assert.Equal(t, "1", snap.Row(0)[0])
}

func TestParseCSVMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty input", ""},
		{"header only", "a,b\n"},
		{"ragged row", "a,b\n1,2\n3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV("bad", []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`[
		{"name": "alice", "score": 91.5, "vip": true},
		{"name": "bob", "score": null, "vip": false},
		{"name": "carol", "vip": true}
	]`)

	snap, err := ParseJSON("scores", data)
	require.NoError(t, err)

	cols := snap.Columns()
	require.Len(t, cols, 3)

	// Column order follows key order in the first object.
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, "score", cols[1].Name)
	assert.Equal(t, "vip", cols[2].Name)

	assert.Equal(t, dataset.TypeNumber, cols[1].Type)
	assert.Equal(t, dataset.TypeBoolean, cols[2].Type)

	// Both explicit null and a missing key produce a null cell.
	assert.Nil(t, snap.Row(1)[1])
	assert.Nil(t, snap.Row(2)[1])
}

func TestParseJSONDateStrings(t *testing.T) {
	data := []byte(`[
		{"at": "2024-01-01"},
		{"at": "2024-06-15 12:30:00"}
	]`)

	snap, err := ParseJSON("events", data)
	require.NoError(t, err)
	assert.Equal(t, dataset.TypeDate, snap.Columns()[0].Type)
	assert.IsType(t, time.Time{}, snap.Row(0)[0])
}

func TestParseJSONMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an array", `{"a": 1}`},
		{"empty array", `[]`},
		{"invalid syntax", `[{"a": }]`},
		{"unknown key in later record", `[{"a": 1}, {"a": 2, "b": 3}]`},
		{"first record empty", `[{}, {"a": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON("bad", []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name\nalice\n"), 0o644))

	snap, err := Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "people", snap.Name())
	assert.Equal(t, 1, snap.RowCount())

	jsonPath := filepath.Join(dir, "people.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name": "alice"}]`), 0o644))

	snap, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "people", snap.Name())

	_, err = Load(filepath.Join(dir, "people.parquet"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
