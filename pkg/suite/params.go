package suite

import (
	"fmt"
	"regexp"

	"github.com/go-viper/mapstructure/v2"
)

// Typed parameter structs, decoded from the wire-format kwargs map.
// Decoding is weakly typed so that JSON numbers, quoted numbers and
// the like all land in the declared field types.

// NullParams configures a null-check.
type NullParams struct {
	// TreatEmptyAsNull also flags empty strings as nulls.
	TreatEmptyAsNull bool `mapstructure:"treat_empty_as_null"`
}

// TypeParams configures a type-check.
type TypeParams struct {
	// Type is the declared logical type: string, number, boolean or date.
	Type string `mapstructure:"type"`
}

// RangeParams configures a range-check. Bounds are inclusive unless the
// strict flags are set; a nil bound is unbounded on that side.
type RangeParams struct {
	MinValue  *float64 `mapstructure:"min_value"`
	MaxValue  *float64 `mapstructure:"max_value"`
	StrictMin bool     `mapstructure:"strict_min"`
	StrictMax bool     `mapstructure:"strict_max"`
}

// SetParams configures a set-membership check. Nulls violate unless
// AllowNull is set.
type SetParams struct {
	ValueSet  []any `mapstructure:"value_set"`
	AllowNull bool  `mapstructure:"allow_null"`
}

// RegexParams configures a regex-match check. Match is "partial"
// (default) or "full".
type RegexParams struct {
	Regex string `mapstructure:"regex"`
	Match string `mapstructure:"match"`
}

// LengthParams configures a length-check over string lengths.
type LengthParams struct {
	MinLength *int `mapstructure:"min_length"`
	MaxLength *int `mapstructure:"max_length"`
}

// StatParams configures a table-level statistical bound. Aggregate is
// mean, median, stddev or sum.
type StatParams struct {
	Aggregate string   `mapstructure:"aggregate"`
	MinValue  *float64 `mapstructure:"min_value"`
	MaxValue  *float64 `mapstructure:"max_value"`
}

// CustomSQLParams carries the comparator parameters of a custom SQL
// expectation.
type CustomSQLParams struct {
	ExpectedValue *float64 `mapstructure:"expected_value"`
	Tolerance     float64  `mapstructure:"tolerance"`
	MinValue      *float64 `mapstructure:"min_value"`
	MaxValue      *float64 `mapstructure:"max_value"`
}

func decodeKwargs(kwargs map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(kwargs)
}

// NullParams decodes null-check parameters.
func (s *Spec) NullParams() (NullParams, error) {
	var p NullParams
	err := decodeKwargs(s.Kwargs, &p)
	return p, err
}

// TypeParams decodes type-check parameters.
func (s *Spec) TypeParams() (TypeParams, error) {
	var p TypeParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	switch p.Type {
	case "string", "number", "boolean", "date":
		return p, nil
	default:
		return p, fmt.Errorf("type_check: unknown logical type %q", p.Type)
	}
}

// RangeParams decodes range-check parameters.
func (s *Spec) RangeParams() (RangeParams, error) {
	var p RangeParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	if p.MinValue == nil && p.MaxValue == nil {
		return p, fmt.Errorf("range_check: at least one of min_value, max_value is required")
	}
	return p, nil
}

// SetParams decodes set-membership parameters.
func (s *Spec) SetParams() (SetParams, error) {
	var p SetParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	if len(p.ValueSet) == 0 {
		return p, fmt.Errorf("set_membership: value_set is required")
	}
	return p, nil
}

// RegexParams decodes regex-match parameters and compiles the pattern
// so bad patterns fail at suite load.
func (s *Spec) RegexParams() (RegexParams, error) {
	var p RegexParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	if p.Regex == "" {
		return p, fmt.Errorf("regex_match: regex is required")
	}
	if _, err := regexp.Compile(p.Regex); err != nil {
		return p, fmt.Errorf("regex_match: %w", err)
	}
	switch p.Match {
	case "":
		p.Match = "partial"
	case "partial", "full":
	default:
		return p, fmt.Errorf("regex_match: unknown match mode %q", p.Match)
	}
	return p, nil
}

// LengthParams decodes length-check parameters.
func (s *Spec) LengthParams() (LengthParams, error) {
	var p LengthParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	if p.MinLength == nil && p.MaxLength == nil {
		return p, fmt.Errorf("length_check: at least one of min_length, max_length is required")
	}
	return p, nil
}

// StatParams decodes statistical-bound parameters.
func (s *Spec) StatParams() (StatParams, error) {
	var p StatParams
	if err := decodeKwargs(s.Kwargs, &p); err != nil {
		return p, err
	}
	switch p.Aggregate {
	case "mean", "median", "stddev", "sum":
	default:
		return p, fmt.Errorf("statistical_bound: unknown aggregate %q", p.Aggregate)
	}
	if p.MinValue == nil && p.MaxValue == nil {
		return p, fmt.Errorf("statistical_bound: at least one of min_value, max_value is required")
	}
	return p, nil
}

// CustomSQLParams decodes comparator parameters of a custom SQL spec.
func (s *Spec) CustomSQLParams() (CustomSQLParams, error) {
	var p CustomSQLParams
	err := decodeKwargs(s.Kwargs, &p)
	return p, err
}
