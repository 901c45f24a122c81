package expect

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// MemoryBackend is the manual fallback: pure in-memory evaluation of
// every built-in expectation kind, independent of any SQL engine
// version. It reproduces the primary backend's semantics exactly.
type MemoryBackend struct{}

// NewMemoryBackend returns the in-memory evaluation backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// Name implements Backend.
func (m *MemoryBackend) Name() core.BackendName { return core.BackendFallback }

// Evaluate implements Backend.
func (m *MemoryBackend) Evaluate(ctx context.Context, snap *dataset.Snapshot, spec *suite.Spec) (core.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return core.Outcome{}, err
	}
	if spec.IsCustomSQL() {
		return core.Outcome{}, fmt.Errorf("custom_sql expectations are not evaluated by expectation backends")
	}

	if !snap.HasColumn(spec.Column) {
		return core.Outcome{}, core.NewRuleError(core.ErrSchema, "column %q not found in dataset", spec.Column)
	}
	values, err := snap.ColumnValues(spec.Column)
	if err != nil {
		return core.Outcome{}, core.NewRuleError(core.ErrSchema, "%s", err)
	}

	switch spec.Kind {
	case suite.KindNullCheck:
		return m.nullCheck(snap, values, spec)
	case suite.KindUniqueness:
		return m.uniqueness(snap, values)
	case suite.KindTypeCheck:
		return m.typeCheck(snap, values, spec)
	case suite.KindRangeCheck:
		return m.rangeCheck(snap, values, spec)
	case suite.KindSetMembership:
		return m.setMembership(snap, values, spec)
	case suite.KindRegexMatch:
		return m.regexMatch(snap, values, spec)
	case suite.KindLengthCheck:
		return m.lengthCheck(snap, values, spec)
	case suite.KindStatBound:
		return m.statBound(values, spec)
	default:
		return core.Outcome{}, fmt.Errorf("unknown expectation kind %q", spec.Kind)
	}
}

// collect turns a per-row violation predicate into an outcome. Row ids
// come out in original row order; an empty column passes vacuously.
func collect(snap *dataset.Snapshot, values []any, violates func(v any) bool) core.Outcome {
	var ids []string
	for i, v := range values {
		if violates(v) {
			ids = append(ids, snap.ID(i))
		}
	}
	return core.Outcome{
		Success:         len(ids) == 0,
		ViolationCount:  len(ids),
		ViolatingRowIDs: ids,
	}
}

func (m *MemoryBackend) nullCheck(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.NullParams()
	if err != nil {
		return core.Outcome{}, err
	}
	return collect(snap, values, func(v any) bool {
		if isNull(v) {
			return true
		}
		if p.TreatEmptyAsNull {
			if s, ok := v.(string); ok && s == "" {
				return true
			}
		}
		return false
	}), nil
}

// uniqueness flags every row whose value occurs more than once: first
// and subsequent occurrences alike. Nulls do not participate.
func (m *MemoryBackend) uniqueness(snap *dataset.Snapshot, values []any) (core.Outcome, error) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if isNull(v) {
			continue
		}
		counts[valueKey(v)]++
	}
	return collect(snap, values, func(v any) bool {
		return !isNull(v) && counts[valueKey(v)] > 1
	}), nil
}

func (m *MemoryBackend) typeCheck(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.TypeParams()
	if err != nil {
		return core.Outcome{}, err
	}
	return collect(snap, values, func(v any) bool {
		return !isNull(v) && !coercible(v, p.Type)
	}), nil
}

// rangeCheck uses inclusive bounds by default. Nulls and values that do
// not coerce to a number are non-violating; pair with null-check or
// type-check to flag those.
func (m *MemoryBackend) rangeCheck(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.RangeParams()
	if err != nil {
		return core.Outcome{}, err
	}
	return collect(snap, values, func(v any) bool {
		if isNull(v) {
			return false
		}
		n, ok := asNumber(v)
		if !ok {
			return false
		}
		return outsideRange(n, p)
	}), nil
}

func outsideRange(n float64, p suite.RangeParams) bool {
	if p.MinValue != nil {
		if p.StrictMin && n <= *p.MinValue {
			return true
		}
		if !p.StrictMin && n < *p.MinValue {
			return true
		}
	}
	if p.MaxValue != nil {
		if p.StrictMax && n >= *p.MaxValue {
			return true
		}
		if !p.StrictMax && n > *p.MaxValue {
			return true
		}
	}
	return false
}

func (m *MemoryBackend) setMembership(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.SetParams()
	if err != nil {
		return core.Outcome{}, err
	}
	allowed := make(map[string]bool, len(p.ValueSet))
	for _, v := range p.ValueSet {
		allowed[valueKey(v)] = true
	}
	return collect(snap, values, func(v any) bool {
		if isNull(v) {
			return !p.AllowNull
		}
		return !allowed[valueKey(v)]
	}), nil
}

func (m *MemoryBackend) regexMatch(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.RegexParams()
	if err != nil {
		return core.Outcome{}, err
	}
	pattern := p.Regex
	if p.Match == "full" {
		pattern = "^(?:" + pattern + ")$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return core.Outcome{}, core.NewRuleError(core.ErrTypeCoercion, "invalid regex: %s", err)
	}
	return collect(snap, values, func(v any) bool {
		return !isNull(v) && !re.MatchString(asString(v))
	}), nil
}

func (m *MemoryBackend) lengthCheck(snap *dataset.Snapshot, values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.LengthParams()
	if err != nil {
		return core.Outcome{}, err
	}
	return collect(snap, values, func(v any) bool {
		if isNull(v) {
			return false
		}
		n := utf8.RuneCountInString(asString(v))
		if p.MinLength != nil && n < *p.MinLength {
			return true
		}
		if p.MaxLength != nil && n > *p.MaxLength {
			return true
		}
		return false
	}), nil
}

// statBound is table-level: a single success flag with no row
// granularity. The aggregate is computed over non-null numeric cells;
// a column with none passes vacuously.
func (m *MemoryBackend) statBound(values []any, spec *suite.Spec) (core.Outcome, error) {
	p, err := spec.StatParams()
	if err != nil {
		return core.Outcome{}, err
	}

	var nums []float64
	for _, v := range values {
		if isNull(v) {
			continue
		}
		if n, ok := asNumber(v); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return core.Outcome{Success: true}, nil
	}
	// Sample stddev is undefined for a single value; the relational
	// backend's stddev yields NULL there and passes vacuously.
	if p.Aggregate == "stddev" && len(nums) < 2 {
		return core.Outcome{Success: true}, nil
	}

	agg, err := aggregate(p.Aggregate, nums)
	if err != nil {
		return core.Outcome{}, err
	}

	within := true
	if p.MinValue != nil && agg < *p.MinValue {
		within = false
	}
	if p.MaxValue != nil && agg > *p.MaxValue {
		within = false
	}
	if within {
		return core.Outcome{Success: true}, nil
	}
	return core.Outcome{Success: false, ViolationCount: 1}, nil
}

// aggregate computes the named statistic. Stddev is the sample standard
// deviation, matching the relational backend's stddev function.
func aggregate(name string, nums []float64) (float64, error) {
	switch name {
	case "sum":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return sum, nil
	case "mean":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums)), nil
	case "median":
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid], nil
		}
		return (sorted[mid-1] + sorted[mid]) / 2, nil
	case "stddev":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		mean := sum / float64(len(nums))
		var ss float64
		for _, n := range nums {
			d := n - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(nums)-1)), nil
	default:
		return 0, fmt.Errorf("unknown aggregate %q", name)
	}
}
