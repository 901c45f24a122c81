package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
)

func testSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	snap, err := dataset.New("orders",
		[]dataset.Column{
			{Name: "id", Type: dataset.TypeString},
			{Name: "amount", Type: dataset.TypeNumber},
		},
		[][]any{
			{"o-1", 10.0},
			{"o-2", -5.0},
			{"o-3", 99.0},
		},
	)
	require.NoError(t, err)
	return snap
}

func TestMaterializeGroupsBySuiteOrder(t *testing.T) {
	snap := testSnapshot(t)

	run := &core.ValidationRun{
		Results: []core.ExpectationResult{
			{
				Index:           0,
				ExpectationType: "range_check",
				Column:          "amount",
				ViolationCount:  1,
				ViolatingRowIDs: []string{snap.ID(1)},
			},
			{
				Index:           1,
				ExpectationType: "null_check",
				Column:          "id",
				Success:         true,
			},
			{
				Index:           2,
				ExpectationType: "uniqueness",
				Column:          "id",
				Description:     "order ids must be unique",
				ViolationCount:  2,
				ViolatingRowIDs: []string{snap.ID(0), snap.ID(2)},
			},
		},
	}

	records, err := Materialize(snap, run)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Expectation 0 first, then expectation 2 in row order.
	assert.Equal(t, 0, records[0].ExpectationIndex)
	assert.Equal(t, snap.ID(1), records[0].RowID)
	assert.Equal(t, []any{"o-2", -5.0}, records[0].Values)
	assert.Equal(t, `value in column "amount" failed range_check check`, records[0].Reason)

	assert.Equal(t, 2, records[1].ExpectationIndex)
	assert.Equal(t, snap.ID(0), records[1].RowID)
	assert.Equal(t, 2, records[2].ExpectationIndex)
	assert.Equal(t, snap.ID(2), records[2].RowID)

	// An explicit description wins over the generated reason.
	assert.Equal(t, "order ids must be unique", records[1].Reason)
}

func TestMaterializeSkipsErroredAndCountOnlyResults(t *testing.T) {
	snap := testSnapshot(t)

	run := &core.ValidationRun{
		Results: []core.ExpectationResult{
			{
				Index:           0,
				ExpectationType: "custom_sql",
				Err:             core.NewRuleError(core.ErrQuerySyntax, "bad query"),
			},
			{
				// Count-only outcome, no row granularity to export.
				Index:           1,
				ExpectationType: "custom_sql",
				ViolationCount:  4,
			},
		},
	}

	records, err := Materialize(snap, run)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestMaterializeReportsOrphanedIDs feeds ids from a different snapshot
// generation; the resolvable records must still come back alongside the
// error.
func TestMaterializeReportsOrphanedIDs(t *testing.T) {
	snap := testSnapshot(t)

	run := &core.ValidationRun{
		Results: []core.ExpectationResult{
			{
				Index:           0,
				ExpectationType: "null_check",
				Column:          "id",
				ViolationCount:  3,
				ViolatingRowIDs: []string{snap.ID(0), "stale-id-1", "stale-id-2"},
			},
		},
	}

	records, err := Materialize(snap, run)
	require.Error(t, err)

	ruleErr := core.AsRuleError(err, core.ErrBackendUnavailable)
	assert.Equal(t, core.ErrOrphanedReference, ruleErr.Kind)
	assert.Contains(t, ruleErr.Message, "stale-id-1")
	assert.Contains(t, ruleErr.Message, "stale-id-2")

	require.Len(t, records, 1)
	assert.Equal(t, snap.ID(0), records[0].RowID)
}
