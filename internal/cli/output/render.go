// Package output renders validation runs for the terminal and exports
// them to files.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/veriq-labs/veriq/internal/linker"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
)

// RenderRun writes a human-readable report of the validation run.
func RenderRun(w io.Writer, run *core.ValidationRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Expectation", "Column", "Status", "Violations", "Backend"})

	for _, res := range run.Results {
		t.AppendRow(table.Row{
			res.Index,
			res.ExpectationType,
			res.Column,
			statusCell(&res),
			res.ViolationCount,
			string(res.Backend),
		})
	}
	t.Render()

	s := run.Summary
	_, _ = fmt.Fprintf(w, "\nSuite %s on %s: %d evaluated, %d passed, %d failed, %d errored (%.1f%% success)\n",
		run.SuiteName, run.DatasetRef, s.Evaluated, s.Passed, s.Failed, s.Errored, s.SuccessRate)
	if run.Partial {
		_, _ = fmt.Fprintln(w, "Run was cancelled before all expectations completed; results are partial.")
	}

	for _, res := range run.Results {
		if res.Errored() {
			_, _ = fmt.Fprintf(w, "  [%d] %s: %s: %s\n", res.Index, res.ExpectationType, res.Err.Kind, res.Err.Message)
		}
	}
}

func statusCell(res *core.ExpectationResult) string {
	switch {
	case res.Errored():
		return text.FgYellow.Sprint("ERROR")
	case res.Success:
		return text.FgGreen.Sprint("PASS")
	default:
		return text.FgRed.Sprint("FAIL")
	}
}

// WriteRunJSON writes the full validation run as indented JSON.
func WriteRunJSON(path string, run *core.ValidationRun) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteFailedRecordsCSV exports failed records as CSV. The header holds
// the linkage columns followed by the snapshot's data columns.
func WriteFailedRecordsCSV(path string, snap *dataset.Snapshot, records []linker.FailedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create failed-records file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)

	header := []string{"row_id", "expectation_index", "expectation_type", "column", "reason"}
	for _, col := range snap.Columns() {
		header = append(header, col.Name)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write failed-records header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.RowID,
			strconv.Itoa(rec.ExpectationIndex),
			rec.ExpectationType,
			rec.Column,
			rec.Reason,
		}
		for _, v := range rec.Values {
			row = append(row, formatCell(v))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write failed record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush failed-records file: %w", err)
	}
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", x)
	}
}
