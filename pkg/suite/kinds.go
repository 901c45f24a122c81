package suite

import "fmt"

// Kind is the closed set of expectation categories. Dispatch is over
// this tagged type; unknown kinds are rejected when a suite is loaded,
// never at evaluation time.
type Kind string

const (
	KindNullCheck     Kind = "null_check"
	KindUniqueness    Kind = "uniqueness"
	KindTypeCheck     Kind = "type_check"
	KindRangeCheck    Kind = "range_check"
	KindSetMembership Kind = "set_membership"
	KindRegexMatch    Kind = "regex_match"
	KindLengthCheck   Kind = "length_check"
	KindStatBound     Kind = "statistical_bound"
	KindCustomSQL     Kind = "custom_sql"
)

// kindAliases maps legacy expectation type names (as produced by older
// suite exports) to canonical kinds, with kwargs implied by the alias.
var kindAliases = map[string]struct {
	kind   Kind
	kwargs map[string]any
}{
	"expect_column_values_to_not_be_null":      {kind: KindNullCheck},
	"expect_column_values_to_be_unique":        {kind: KindUniqueness},
	"expect_column_values_to_be_of_type":       {kind: KindTypeCheck},
	"expect_column_values_to_be_between":       {kind: KindRangeCheck},
	"expect_column_values_to_be_in_set":        {kind: KindSetMembership},
	"expect_column_values_to_match_regex":      {kind: KindRegexMatch},
	"expect_column_value_lengths_to_be_between": {kind: KindLengthCheck},
	"expect_column_mean_to_be_between":         {kind: KindStatBound, kwargs: map[string]any{"aggregate": "mean"}},
	"expect_column_median_to_be_between":       {kind: KindStatBound, kwargs: map[string]any{"aggregate": "median"}},
	"expect_column_stdev_to_be_between":        {kind: KindStatBound, kwargs: map[string]any{"aggregate": "stddev"}},
	"expect_column_sum_to_be_between":          {kind: KindStatBound, kwargs: map[string]any{"aggregate": "sum"}},
	"expect_custom_sql_query_to_return_expected_result": {kind: KindCustomSQL},
}

var validKinds = map[Kind]bool{
	KindNullCheck:     true,
	KindUniqueness:    true,
	KindTypeCheck:     true,
	KindRangeCheck:    true,
	KindSetMembership: true,
	KindRegexMatch:    true,
	KindLengthCheck:   true,
	KindStatBound:     true,
	KindCustomSQL:     true,
}

// ParseKind resolves an expectation type string to a Kind, accepting
// canonical names and legacy aliases. Alias-implied kwargs (e.g. the
// aggregate of expect_column_mean_to_be_between) are returned alongside.
func ParseKind(s string) (Kind, map[string]any, error) {
	if validKinds[Kind(s)] {
		return Kind(s), nil, nil
	}
	if a, ok := kindAliases[s]; ok {
		return a.kind, a.kwargs, nil
	}
	return "", nil, fmt.Errorf("unknown expectation type %q", s)
}

// Kinds returns all canonical kinds in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindNullCheck,
		KindUniqueness,
		KindTypeCheck,
		KindRangeCheck,
		KindSetMembership,
		KindRegexMatch,
		KindLengthCheck,
		KindStatBound,
		KindCustomSQL,
	}
}
