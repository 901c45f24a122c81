// Package sqlbackend is the primary evaluation backend: it compiles
// built-in expectation kinds into SQL over the materialized snapshot
// table and lets the relational engine find the violating rows. The
// in-memory backend in pkg/expect is the version-independent fallback
// and must produce identical outcomes on the same input.
package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veriq-labs/veriq/internal/adapter"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/expect"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// Backend evaluates built-in expectations by pushing them down to the
// relational view of the snapshot.
type Backend struct {
	db     adapter.Adapter
	table  string
	logger *slog.Logger
}

// New creates a SQL-pushdown backend over the given materialized table.
func New(db adapter.Adapter, table string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{db: db, table: table, logger: logger}
}

// Name implements expect.Backend.
func (b *Backend) Name() core.BackendName { return core.BackendPrimary }

// Evaluate implements expect.Backend.
func (b *Backend) Evaluate(ctx context.Context, snap *dataset.Snapshot, spec *suite.Spec) (core.Outcome, error) {
	if spec.IsCustomSQL() {
		return core.Outcome{}, fmt.Errorf("custom_sql expectations are not evaluated by expectation backends")
	}

	col, ok := snap.Column(spec.Column)
	if !ok {
		return core.Outcome{}, core.NewRuleError(core.ErrSchema, "column %q not found in dataset", spec.Column)
	}

	if spec.Kind == suite.KindStatBound {
		return b.statBound(ctx, col, spec)
	}

	pred, err := b.compilePredicate(col, spec)
	if err != nil {
		return core.Outcome{}, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		adapter.QuoteIdent(adapter.RowIDColumn),
		adapter.QuoteIdent(b.table),
		pred,
		adapter.QuoteIdent(adapter.RowIdxColumn),
	)
	b.logger.Debug("pushdown query", "kind", spec.Kind, "column", spec.Column)

	ids, err := b.queryIDs(ctx, query)
	if err != nil {
		return core.Outcome{}, err
	}

	return core.Outcome{
		Success:         len(ids) == 0,
		ViolationCount:  len(ids),
		ViolatingRowIDs: ids,
	}, nil
}

func (b *Backend) queryIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := b.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// compilePredicate builds the WHERE clause that matches violating rows
// for a per-row expectation kind.
func (b *Backend) compilePredicate(col dataset.Column, spec *suite.Spec) (string, error) {
	q := adapter.QuoteIdent(col.Name)

	switch spec.Kind {
	case suite.KindNullCheck:
		p, err := spec.NullParams()
		if err != nil {
			return "", err
		}
		pred := q + " IS NULL"
		if p.TreatEmptyAsNull && col.Type == dataset.TypeString {
			pred = "(" + pred + " OR " + q + " = '')"
		}
		return pred, nil

	case suite.KindUniqueness:
		// Both the first and every subsequent occurrence of a duplicated
		// value are violations. Nulls do not participate.
		dup := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1",
			q, adapter.QuoteIdent(b.table), q, q)
		return fmt.Sprintf("%s IS NOT NULL AND %s IN (%s)", q, q, dup), nil

	case suite.KindTypeCheck:
		p, err := spec.TypeParams()
		if err != nil {
			return "", err
		}
		target, err := castTypeFor(p.Type)
		if err != nil {
			return "", err
		}
		if target == "VARCHAR" {
			// Everything casts to string; no row can violate.
			return "FALSE", nil
		}
		return fmt.Sprintf("%s IS NOT NULL AND TRY_CAST(%s AS %s) IS NULL", q, q, target), nil

	case suite.KindRangeCheck:
		p, err := spec.RangeParams()
		if err != nil {
			return "", err
		}
		num := q
		if col.Type != dataset.TypeNumber {
			num = fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", q)
		}
		var bounds []string
		if p.MinValue != nil {
			op := "<"
			if p.StrictMin {
				op = "<="
			}
			bounds = append(bounds, fmt.Sprintf("%s %s %s", num, op, formatNumber(*p.MinValue)))
		}
		if p.MaxValue != nil {
			op := ">"
			if p.StrictMax {
				op = ">="
			}
			bounds = append(bounds, fmt.Sprintf("%s %s %s", num, op, formatNumber(*p.MaxValue)))
		}
		return fmt.Sprintf("%s IS NOT NULL AND %s IS NOT NULL AND (%s)",
			q, num, strings.Join(bounds, " OR ")), nil

	case suite.KindSetMembership:
		p, err := spec.SetParams()
		if err != nil {
			return "", err
		}
		lits := make([]string, 0, len(p.ValueSet))
		for _, v := range p.ValueSet {
			lit, err := formatLiteral(v)
			if err != nil {
				return "", err
			}
			lits = append(lits, lit)
		}
		notIn := fmt.Sprintf("%s NOT IN (%s)", q, strings.Join(lits, ", "))
		if p.AllowNull {
			return fmt.Sprintf("%s IS NOT NULL AND %s", q, notIn), nil
		}
		return fmt.Sprintf("(%s IS NULL OR %s)", q, notIn), nil

	case suite.KindRegexMatch:
		p, err := spec.RegexParams()
		if err != nil {
			return "", err
		}
		fn := "regexp_matches"
		if p.Match == "full" {
			fn = "regexp_full_match"
		}
		operand := q
		if col.Type != dataset.TypeString {
			operand = fmt.Sprintf("CAST(%s AS VARCHAR)", q)
		}
		return fmt.Sprintf("%s IS NOT NULL AND NOT %s(%s, %s)",
			q, fn, operand, quoteString(p.Regex)), nil

	case suite.KindLengthCheck:
		p, err := spec.LengthParams()
		if err != nil {
			return "", err
		}
		operand := q
		if col.Type != dataset.TypeString {
			operand = fmt.Sprintf("CAST(%s AS VARCHAR)", q)
		}
		var bounds []string
		if p.MinLength != nil {
			bounds = append(bounds, fmt.Sprintf("length(%s) < %d", operand, *p.MinLength))
		}
		if p.MaxLength != nil {
			bounds = append(bounds, fmt.Sprintf("length(%s) > %d", operand, *p.MaxLength))
		}
		return fmt.Sprintf("%s IS NOT NULL AND (%s)", q, strings.Join(bounds, " OR ")), nil

	default:
		return "", fmt.Errorf("unknown expectation kind %q", spec.Kind)
	}
}

// statBound runs the aggregate in SQL and compares the scalar in Go.
// Aggregates skip NULLs; a column with no usable values passes
// vacuously, matching the fallback backend.
func (b *Backend) statBound(ctx context.Context, col dataset.Column, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.StatParams()
	if err != nil {
		return core.Outcome{}, err
	}

	fn, err := aggregateFunc(p.Aggregate)
	if err != nil {
		return core.Outcome{}, err
	}

	operand := adapter.QuoteIdent(col.Name)
	if col.Type != dataset.TypeNumber {
		operand = fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", operand)
	}

	query := fmt.Sprintf("SELECT %s(%s) FROM %s", fn, operand, adapter.QuoteIdent(b.table))

	rows, err := b.db.Query(ctx, query)
	if err != nil {
		return core.Outcome{}, err
	}
	defer func() { _ = rows.Close() }()

	var agg sql.NullFloat64
	if rows.Next() {
		if err := rows.Scan(&agg); err != nil {
			return core.Outcome{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return core.Outcome{}, err
	}

	if !agg.Valid {
		return core.Outcome{Success: true}, nil
	}

	within := true
	if p.MinValue != nil && agg.Float64 < *p.MinValue {
		within = false
	}
	if p.MaxValue != nil && agg.Float64 > *p.MaxValue {
		within = false
	}
	if within {
		return core.Outcome{Success: true}, nil
	}
	return core.Outcome{Success: false, ViolationCount: 1}, nil
}

func castTypeFor(logical string) (string, error) {
	switch logical {
	case "string":
		return "VARCHAR", nil
	case "number":
		return "DOUBLE", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	default:
		return "", fmt.Errorf("type_check: unknown logical type %q", logical)
	}
}

func aggregateFunc(name string) (string, error) {
	switch name {
	case "mean":
		return "avg", nil
	case "median":
		return "median", nil
	case "stddev":
		return "stddev", nil
	case "sum":
		return "sum", nil
	default:
		return "", fmt.Errorf("unknown aggregate %q", name)
	}
}

var _ expect.Backend = (*Backend)(nil)
