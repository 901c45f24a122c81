// Package linker joins violating row ids back to the dataset snapshot,
// producing one exportable record per (row, violated expectation)
// pair. Row ids that no longer resolve, for example because the
// snapshot was re-sampled between validation and export, surface as an
// OrphanedReference condition instead of being silently dropped.
package linker

import (
	"fmt"
	"strings"

	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
)

// FailedRecord carries one violating row together with the expectation
// it violated. Values holds the row's full cells in snapshot column
// order.
type FailedRecord struct {
	RowID            string
	ExpectationIndex int
	ExpectationType  string
	Column           string
	Description      string
	Reason           string
	Values           []any
}

// Materialize builds failed records for every result that carries
// row-level violations. Records are grouped by expectation in suite
// order and, within an expectation, in original row order.
//
// When some row ids do not resolve against the snapshot, the resolved
// records are still returned together with an OrphanedReference error
// naming the missing ids.
func Materialize(snap *dataset.Snapshot, run *core.ValidationRun) ([]FailedRecord, error) {
	var records []FailedRecord
	var orphans []string

	for i := range run.Results {
		res := &run.Results[i]
		if res.Errored() || res.ViolationCount == 0 || len(res.ViolatingRowIDs) == 0 {
			continue
		}

		reason := failureReason(res)
		for _, id := range res.ViolatingRowIDs {
			row, ok := snap.RowByID(id)
			if !ok {
				orphans = append(orphans, id)
				continue
			}
			records = append(records, FailedRecord{
				RowID:            id,
				ExpectationIndex: res.Index,
				ExpectationType:  res.ExpectationType,
				Column:           res.Column,
				Description:      res.Description,
				Reason:           reason,
				Values:           row,
			})
		}
	}

	if len(orphans) > 0 {
		return records, core.NewRuleError(core.ErrOrphanedReference,
			"%d violating row id(s) not found in snapshot %s: %s",
			len(orphans), snap.Name(), strings.Join(orphans, ", "))
	}
	return records, nil
}

// failureReason renders a human-readable explanation of the violation.
func failureReason(res *core.ExpectationResult) string {
	if res.Description != "" {
		return res.Description
	}
	if res.Column != "" {
		return fmt.Sprintf("value in column %q failed %s check", res.Column, res.ExpectationType)
	}
	return fmt.Sprintf("row failed %s check", res.ExpectationType)
}
