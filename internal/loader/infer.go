package loader

// infer.go - Column type inference over raw parsed cells

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/veriq-labs/veriq/pkg/dataset"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV data: %w", err)
	}
	return records, nil
}

// typeColumns infers a logical type per column and converts every cell
// to its typed representation. Nulls are preserved as nil.
func typeColumns(names []string, raw [][]any) ([]dataset.Column, [][]any, error) {
	columns := make([]dataset.Column, len(names))
	rows := make([][]any, len(raw))
	for i := range rows {
		rows[i] = make([]any, len(names))
	}

	for j, name := range names {
		var cells []any
		for i := range raw {
			cells = append(cells, raw[i][j])
		}

		typ := inferType(cells)
		columns[j] = dataset.Column{Name: name, Type: typ}

		for i, v := range raw {
			typed, err := convertCell(v[j], typ)
			if err != nil {
				return nil, nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			rows[i][j] = typed
		}
	}
	return columns, rows, nil
}

// inferType picks the narrowest logical type that fits every non-null
// cell, trying boolean, number and date before falling back to string.
func inferType(cells []any) dataset.LogicalType {
	seen := false
	isBool, isNumber, isDate := true, true, true

	for _, v := range cells {
		if v == nil {
			continue
		}
		seen = true

		switch x := v.(type) {
		case bool:
			isNumber, isDate = false, false
		case float64:
			isBool, isDate = false, false
		case time.Time:
			isBool, isNumber = false, false
		case string:
			s := strings.TrimSpace(x)
			if !isBoolLiteral(s) {
				isBool = false
			}
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isNumber = false
			}
			if !isDateLiteral(s) {
				isDate = false
			}
		default:
			isBool, isNumber, isDate = false, false, false
		}
	}

	switch {
	case !seen:
		return dataset.TypeString
	case isBool:
		return dataset.TypeBoolean
	case isNumber:
		return dataset.TypeNumber
	case isDate:
		return dataset.TypeDate
	default:
		return dataset.TypeString
	}
}

func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f":
		return true
	}
	return false
}

func isDateLiteral(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func convertCell(v any, typ dataset.LogicalType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch typ {
	case dataset.TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "t":
				return true, nil
			case "false", "f":
				return false, nil
			}
		}
		return nil, fmt.Errorf("cannot convert %v to boolean", v)

	case dataset.TypeNumber:
		switch x := v.(type) {
		case float64:
			return x, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to number", x)
			}
			return f, nil
		}
		return nil, fmt.Errorf("cannot convert %v to number", v)

	case dataset.TypeDate:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			s := strings.TrimSpace(x)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
		return nil, fmt.Errorf("cannot convert %v to date", v)

	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case bool:
			return strconv.FormatBool(x), nil
		default:
			return fmt.Sprintf("%v", x), nil
		}
	}
}
