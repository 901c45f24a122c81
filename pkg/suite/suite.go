// Package suite defines declarative data-quality expectations: typed
// built-in checks and custom SQL predicates, grouped into named,
// ordered suites. Suites are validated structurally at load time so
// that malformed specs are rejected before any evaluation starts.
package suite

import (
	"errors"
	"fmt"
	"strings"
)

// ExpectedResultType describes how a custom SQL expectation's reported
// count is compared to decide success.
type ExpectedResultType string

const (
	// ExpectEmpty succeeds when the reported violation count is zero.
	ExpectEmpty ExpectedResultType = "empty"
	// ExpectNonEmpty inverts: it succeeds when the count is positive.
	ExpectNonEmpty ExpectedResultType = "non_empty"
	// ExpectCountEquals succeeds when the count matches expected_value
	// within tolerance.
	ExpectCountEquals ExpectedResultType = "count_equals"
	// ExpectCountBetween succeeds when the count falls in
	// [min_value, max_value].
	ExpectCountBetween ExpectedResultType = "count_between"
)

// Spec is a single declarative rule. Built-in kinds carry Column and
// Kwargs; custom SQL carries Query (plus comparator kwargs). Exactly
// one of the two shapes is populated, never both, never neither.
type Spec struct {
	Kind        Kind
	Column      string
	Kwargs      map[string]any
	Query       string
	Expected    ExpectedResultType
	Description string
}

// TypeString returns the canonical expectation type name for reporting.
func (s *Spec) TypeString() string { return string(s.Kind) }

// IsCustomSQL reports whether the spec is a custom SQL predicate.
func (s *Spec) IsCustomSQL() bool { return s.Kind == KindCustomSQL }

// Validate checks the structural invariants of a single spec. These
// violations indicate a malformed suite and are fatal: they are
// rejected before evaluation begins, unlike runtime data conditions.
func (s *Spec) Validate() error {
	if !validKinds[s.Kind] {
		return fmt.Errorf("unknown expectation kind %q", s.Kind)
	}

	if s.IsCustomSQL() {
		if strings.TrimSpace(s.Query) == "" {
			return errors.New("custom_sql expectation has no query")
		}
		switch s.Expected {
		case "", ExpectEmpty, ExpectNonEmpty, ExpectCountEquals, ExpectCountBetween:
		default:
			return fmt.Errorf("unknown expected_result_type %q", s.Expected)
		}
		return nil
	}

	if s.Query != "" {
		return fmt.Errorf("%s expectation must not carry a query", s.Kind)
	}
	if s.Column == "" {
		return fmt.Errorf("%s expectation requires a column", s.Kind)
	}

	// Decode parameters eagerly so bad kwargs fail at load, not mid-run.
	_, err := s.Params()
	return err
}

// Params decodes the spec's kwargs into the typed parameter struct for
// its kind. Custom SQL specs decode their comparator parameters.
func (s *Spec) Params() (any, error) {
	switch s.Kind {
	case KindNullCheck:
		return s.NullParams()
	case KindUniqueness:
		return struct{}{}, nil
	case KindTypeCheck:
		return s.TypeParams()
	case KindRangeCheck:
		return s.RangeParams()
	case KindSetMembership:
		return s.SetParams()
	case KindRegexMatch:
		return s.RegexParams()
	case KindLengthCheck:
		return s.LengthParams()
	case KindStatBound:
		return s.StatParams()
	case KindCustomSQL:
		return s.CustomSQLParams()
	default:
		return nil, fmt.Errorf("unknown expectation kind %q", s.Kind)
	}
}

// Suite is a named, ordered sequence of specs. Order is preserved in
// results; duplicate specs are permitted and evaluated independently.
type Suite struct {
	Name  string
	Specs []Spec
}

// Validate checks every spec in the suite. Any error here is terminal
// for the run that was about to use the suite.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return errors.New("suite has no name")
	}
	var errs []error
	for i := range s.Specs {
		if err := s.Specs[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("expectation %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
