package sqlrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-labs/veriq/internal/adapter"
	"github.com/veriq-labs/veriq/internal/testutil"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/suite"
)

func employeeSnapshot(t *testing.T) *dataset.Snapshot {
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
			{"carol", 35000.0, true},
		},
	)
	require.NoError(t, err)
	return snap
}

func newRunner(t *testing.T, snap *dataset.Snapshot) *Runner {
	t.Helper()
	ctx := context.Background()

	adp := adapter.NewDuckDBAdapter(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	require.NoError(t, adp.MaterializeSnapshot(ctx, "data_table", snap))
	return New(adp, "data_table", testutil.NewTestLogger(t))
}

func TestRunCanonicalQueryMaterializesRowIDs(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	spec := &suite.Spec{
		Kind:  suite.KindCustomSQL,
		Query: "SELECT COUNT(*) AS violation_count FROM {table_name} WHERE salary < 40000",
	}

	out, err := r.Run(context.Background(), spec, snap)
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.Equal(t, 2, out.ViolationCount)
	assert.Equal(t, []string{snap.ID(0), snap.ID(2)}, out.ViolatingRowIDs)
}

func TestRunNonDerivableQueryReportsCountOnly(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	spec := &suite.Spec{
		Kind: suite.KindCustomSQL,
		Query: "SELECT COUNT(*) AS violation_count FROM " +
			"(SELECT salary FROM {table_name} WHERE salary < 40000) sub",
	}

	out, err := r.Run(context.Background(), spec, snap)
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.Equal(t, 2, out.ViolationCount)
	assert.Empty(t, out.ViolatingRowIDs)
}

func TestRunBooleanLiteralSpellingsAgree(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	queries := []string{
		"SELECT COUNT(*) AS violation_count FROM {table_name} WHERE active = True",
		"SELECT COUNT(*) AS violation_count FROM {table_name} WHERE active = 1",
		"SELECT COUNT(*) AS violation_count FROM {table_name} WHERE active = TRUE",
	}

	var outs []core.Outcome
	for _, q := range queries {
		out, err := r.Run(context.Background(), &suite.Spec{Kind: suite.KindCustomSQL, Query: q}, snap)
		require.NoError(t, err, "query %q", q)
		outs = append(outs, out)
	}

	for i := 1; i < len(outs); i++ {
		assert.Equal(t, outs[0], outs[i], "all boolean spellings must agree")
	}
	assert.Equal(t, 2, outs[0].ViolationCount)
}

func TestRunContractErrors(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	tests := []struct {
		name     string
		query    string
		wantKind core.ErrorKind
	}{
		{
			name:     "missing placeholder",
			query:    "SELECT COUNT(*) AS violation_count FROM employees WHERE salary < 0",
			wantKind: core.ErrPlaceholderMissing,
		},
		{
			name:     "forbidden keyword",
			query:    "DELETE FROM {table_name} WHERE salary < 0",
			wantKind: core.ErrContractViolation,
		},
		{
			name:     "missing violation_count column",
			query:    "SELECT COUNT(*) AS n FROM {table_name} WHERE salary < 0",
			wantKind: core.ErrContractViolation,
		},
		{
			name:     "syntax error",
			query:    "SELEC COUNT(*) AS violation_count FROM {table_name}",
			wantKind: core.ErrQuerySyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), &suite.Spec{Kind: suite.KindCustomSQL, Query: tt.query}, snap)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.AsRuleError(err, core.ErrBackendUnavailable).Kind)
		})
	}
}

func TestRunComparators(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	countBelow40k := "SELECT COUNT(*) AS violation_count FROM {table_name} WHERE salary < 40000"

	tests := []struct {
		name        string
		expected    suite.ExpectedResultType
		kwargs      map[string]any
		wantSuccess bool
	}{
		{"default empty fails on violations", suite.ExpectEmpty, nil, false},
		{"non_empty succeeds on violations", suite.ExpectNonEmpty, nil, true},
		{"count_equals exact", suite.ExpectCountEquals, map[string]any{"expected_value": 2}, true},
		{"count_equals within tolerance", suite.ExpectCountEquals, map[string]any{"expected_value": 3, "tolerance": 1}, true},
		{"count_equals outside tolerance", suite.ExpectCountEquals, map[string]any{"expected_value": 5}, false},
		{"count_between inside", suite.ExpectCountBetween, map[string]any{"min_value": 1, "max_value": 3}, true},
		{"count_between outside", suite.ExpectCountBetween, map[string]any{"min_value": 3, "max_value": 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &suite.Spec{
				Kind:     suite.KindCustomSQL,
				Query:    countBelow40k,
				Expected: tt.expected,
				Kwargs:   tt.kwargs,
			}
			out, err := r.Run(context.Background(), spec, snap)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, out.Success)
		})
	}
}

func TestRunNonEmptyWithNoMatches(t *testing.T) {
	snap := employeeSnapshot(t)
	r := newRunner(t, snap)

	spec := &suite.Spec{
		Kind:     suite.KindCustomSQL,
		Query:    "SELECT COUNT(*) AS violation_count FROM {table_name} WHERE salary > 1000000",
		Expected: suite.ExpectNonEmpty,
	}

	out, err := r.Run(context.Background(), spec, snap)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.ViolationCount)
}
