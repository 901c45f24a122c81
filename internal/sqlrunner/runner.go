// Package sqlrunner compiles and executes custom SQL expectations
// against the ephemeral relational view of a dataset snapshot. It
// enforces the violation-count contract, materializes violating rows
// under the same predicate, and cross-checks the two rather than
// trusting either side silently.
package sqlrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/veriq-labs/veriq/internal/adapter"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// Runner executes custom SQL expectations.
type Runner struct {
	db     adapter.Adapter
	table  string
	logger *slog.Logger
}

// New creates a runner bound to the snapshot's registered table alias.
func New(db adapter.Adapter, table string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{db: db, table: table, logger: logger}
}

// Run executes one custom SQL expectation. All returned errors are
// rule-scoped; the caller records them without aborting the run.
func (r *Runner) Run(ctx context.Context, spec *suite.Spec, snap *dataset.Snapshot) (core.Outcome, error) {
	if ruleErr := validateQuery(spec.Query); ruleErr != nil {
		return core.Outcome{}, ruleErr
	}

	normalized := normalizeBooleanLiterals(spec.Query, snap)

	count, err := r.reportedCount(ctx, normalized)
	if err != nil {
		return core.Outcome{}, err
	}

	var ids []string
	if pred, ok := deriveRowIDQuery(normalized); ok {
		ids, err = r.materializeRowIDs(ctx, pred)
		if err != nil {
			return core.Outcome{}, err
		}
		if int64(len(ids)) != count {
			return core.Outcome{}, core.NewRuleError(core.ErrQueryInconsistency,
				"reported count %d does not match %d materialized violating rows", count, len(ids))
		}
	}

	return r.compare(spec, count, ids)
}

// reportedCount executes the count query and reads the scalar from the
// violation_count column.
func (r *Runner) reportedCount(ctx context.Context, query string) (int64, error) {
	sqlText := strings.ReplaceAll(query, PlaceholderToken, adapter.QuoteIdent(r.table))

	rows, err := r.db.Query(ctx, sqlText)
	if err != nil {
		return 0, classifyQueryError(err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return 0, classifyQueryError(err)
	}

	countIdx := -1
	for i, c := range cols {
		if strings.EqualFold(c, CountColumn) {
			countIdx = i
			break
		}
	}
	if countIdx < 0 {
		return 0, core.NewRuleError(core.ErrContractViolation,
			"query result must expose a column named %q, got %v", CountColumn, cols)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, classifyQueryError(err)
		}
		return 0, core.NewRuleError(core.ErrContractViolation, "query returned no rows")
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return 0, classifyQueryError(err)
	}

	count, err := coerceCount(vals[countIdx])
	if err != nil {
		return 0, core.NewRuleError(core.ErrContractViolation, "%s", err)
	}
	return count, nil
}

// materializeRowIDs selects the snapshot's row identifier column under
// the derived predicate, in original row order.
func (r *Runner) materializeRowIDs(ctx context.Context, pred string) ([]string, error) {
	pred = strings.ReplaceAll(pred, PlaceholderToken, adapter.QuoteIdent(r.table))

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		adapter.QuoteIdent(adapter.RowIDColumn),
		adapter.QuoteIdent(r.table),
		pred,
		adapter.QuoteIdent(adapter.RowIdxColumn),
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classifyQueryError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}
	return ids, nil
}

// compare applies the expectation's comparator semantics to the
// reported count. Only the default "expect empty" comparator carries
// row-level granularity; the aggregate comparators report counts only.
func (r *Runner) compare(spec *suite.Spec, count int64, ids []string) (core.Outcome, error) {
	p, err := spec.CustomSQLParams()
	if err != nil {
		return core.Outcome{}, err
	}

	switch spec.Expected {
	case "", suite.ExpectEmpty:
		return core.Outcome{
			Success:         count == 0,
			ViolationCount:  int(count),
			ViolatingRowIDs: ids,
		}, nil

	case suite.ExpectNonEmpty:
		if count > 0 {
			return core.Outcome{Success: true}, nil
		}
		return core.Outcome{Success: false, ViolationCount: 1}, nil

	case suite.ExpectCountEquals:
		if p.ExpectedValue == nil {
			return core.Outcome{}, core.NewRuleError(core.ErrContractViolation,
				"count_equals expectation requires expected_value")
		}
		diff := math.Abs(float64(count) - *p.ExpectedValue)
		if diff <= p.Tolerance {
			return core.Outcome{Success: true}, nil
		}
		return core.Outcome{Success: false, ViolationCount: int(diff)}, nil

	case suite.ExpectCountBetween:
		lo, hi := 0.0, math.Inf(1)
		if p.MinValue != nil {
			lo = *p.MinValue
		}
		if p.MaxValue != nil {
			hi = *p.MaxValue
		}
		c := float64(count)
		if c >= lo && c <= hi {
			return core.Outcome{Success: true}, nil
		}
		dist := c - hi
		if c < lo {
			dist = lo - c
		}
		return core.Outcome{Success: false, ViolationCount: int(dist)}, nil

	default:
		return core.Outcome{}, core.NewRuleError(core.ErrContractViolation,
			"unknown expected_result_type %q", spec.Expected)
	}
}

// classifyQueryError maps execution failures onto the rule-scoped
// taxonomy: timeouts stay timeouts, everything else from the SQL engine
// is a syntax/execution error.
func classifyQueryError(err error) *core.RuleError {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewRuleError(core.ErrExecutionTimeout, "query exceeded its deadline")
	}
	return core.AsRuleError(err, core.ErrQuerySyntax)
}

func coerceCount(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("%s value has unsupported type %T", CountColumn, v)
	}
}
