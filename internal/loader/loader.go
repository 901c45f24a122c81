// Package loader reads tabular data files into dataset snapshots.
// CSV and JSON (array of objects) sources are supported; column types
// are inferred from the values.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veriq-labs/veriq/pkg/dataset"
)

// Load reads the file at path into a snapshot, dispatching on the file
// extension. The snapshot name is the file's base name without
// extension.
func Load(path string) (*dataset.Snapshot, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(name, data)
	case ".json":
		return ParseJSON(name, data)
	default:
		return nil, fmt.Errorf("unsupported data format %q (want .csv or .json)", filepath.Ext(path))
	}
}

// ParseJSON builds a snapshot from a JSON array of objects. Column
// order follows key order in the first object; objects missing a key
// get a null cell, keys absent from the first object are an error.
func ParseJSON(name string, data []byte) (*dataset.Snapshot, error) {
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("failed to parse JSON data: %w", err)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("JSON data contains no records")
	}

	names, err := firstObjectKeys(data)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	raw := make([][]any, len(objects))
	for i, obj := range objects {
		for k := range obj {
			if !known[k] {
				return nil, fmt.Errorf("record %d has unknown column %q", i, k)
			}
		}
		row := make([]any, len(names))
		for j, n := range names {
			row[j] = obj[n]
		}
		raw[i] = row
	}

	columns, rows, err := typeColumns(names, raw)
	if err != nil {
		return nil, err
	}
	return dataset.New(name, columns, rows)
}

// ParseCSV builds a snapshot from CSV data. The first row is the
// header; empty cells become nulls.
func ParseCSV(name string, data []byte) (*dataset.Snapshot, error) {
	records, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("CSV data has no header row")
	}

	names := records[0]
	raw := make([][]any, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i+1, len(rec), len(names))
		}
		row := make([]any, len(rec))
		for j, cell := range rec {
			if cell == "" {
				row[j] = nil
			} else {
				row[j] = cell
			}
		}
		raw = append(raw, row)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("CSV data contains no records")
	}

	columns, rows, err := typeColumns(names, raw)
	if err != nil {
		return nil, err
	}
	return dataset.New(name, columns, rows)
}

// firstObjectKeys walks the JSON token stream to recover the key order
// of the first object, which map decoding discards.
func firstObjectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	// Opening '[' then the first object's '{'.
	for _, want := range []json.Delim{'[', '{'} {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON data: %w", err)
		}
		d, ok := tok.(json.Delim)
		if !ok || d != want {
			return nil, fmt.Errorf("JSON data must be an array of objects")
		}
	}

	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON data: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("JSON data must be an array of objects")
		}
		names = append(names, key)

		// Skip the value.
		var discard any
		if err := dec.Decode(&discard); err != nil {
			return nil, fmt.Errorf("failed to parse JSON data: %w", err)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("first JSON record has no columns")
	}
	return names, nil
}
